package view

// Response is the envelope every endpoint returns.
type Response[T any] struct {
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func CreateResponse[T any](data T, err error, errMessage, message string) Response[T] {
	resp := Response[T]{
		Data:    data,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		if errMessage != "" {
			resp.Error = errMessage
		}
	} else if errMessage != "" {
		resp.Error = errMessage
	}
	return resp
}
