package protocol

const Version = "1.0"

// Status codes follow the original external API convention: 0 means the
// operation succeeded, anything else means it did not mutate state.
const (
	StatusOK    = 0
	StatusError = 1
)

type Status struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	// ErrCode carries the machine-readable condition (E_*) when Code != 0,
	// or an informational condition (e.g. E_ALREADY_RESOLVED) with Code 0.
	ErrCode string `json:"err_code,omitempty"`
}

func OK(msg string) Status { return Status{Code: StatusOK, Msg: msg} }

func Error(code, msg string) Status {
	return Status{Code: StatusError, Msg: msg, ErrCode: code}
}

func Info(code, msg string) Status {
	return Status{Code: StatusOK, Msg: msg, ErrCode: code}
}
