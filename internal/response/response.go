package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope of every bridge reply. Exactly one of Data and
// Error is meaningful.
type Response struct {
	Data     interface{} `json:"data"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// ErrorBody carries a machine code, a display message and optional per-field
// details (validation messages, or "detail" from the exam API).
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Metadata lets the shell correlate a reply with bridge logs.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success sends data with the given status.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, envelope(c, data, nil))
}

// Fail sends an error with the standard message for code.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	c.JSON(statusCode, envelope(c, nil, newError(code, nil)))
}

// FailWithFields sends an error with per-field details.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	c.JSON(statusCode, envelope(c, nil, newError(code, fields)))
}

// FailWithDetail sends an error carrying the exam API's detail message.
func FailWithDetail(c *gin.Context, statusCode int, code ErrCode, detail string) {
	var fields map[string]string
	if detail != "" {
		fields = map[string]string{"detail": detail}
	}
	FailWithFields(c, statusCode, code, fields)
}

// AbortFail stops the middleware chain with an error reply.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	c.AbortWithStatusJSON(statusCode, envelope(c, nil, newError(code, nil)))
}

func newError(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func envelope(c *gin.Context, data interface{}, errBody *ErrorBody) Response {
	id := RequestID(c)
	if id == "" {
		id = uuid.NewString()
	}
	return Response{
		Data:  data,
		Error: errBody,
		Metadata: Metadata{
			RequestID: id,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
