package httpapi

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	auth "github.com/pulseapp/pulse-auth"
)

// Error kinds that only exist at the HTTP boundary.
const (
	TextCodeForbidden   = "FORBIDDEN"
	TextCodeRateLimited = "RATE_LIMITED"
)

// ErrHOCRequired is returned when a route needs an approved HOC account.
var ErrHOCRequired = goerrors.New("HOC access required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when an authenticated account lacks admin rights.
var ErrForbidden = goerrors.New("admin access required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrRateLimited is returned when a client exceeds the signup or login budget.
var ErrRateLimited = goerrors.New("too many requests, slow down", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

var kindStatus = map[string]int{
	auth.TextCodeValidation:         http.StatusBadRequest,
	auth.TextCodeDuplicateEmail:     http.StatusConflict,
	auth.TextCodeInvalidCredentials: http.StatusUnauthorized,
	auth.TextCodeTokenExpired:       http.StatusUnauthorized,
	auth.TextCodeTokenInvalid:       http.StatusUnauthorized,
	auth.TextCodeInvalidState:       http.StatusBadRequest,
	auth.TextCodeNotFound:           http.StatusNotFound,
	TextCodeForbidden:               http.StatusForbidden,
	TextCodeRateLimited:             http.StatusTooManyRequests,
}

// ErrorResponse is the JSON body rendered for every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// kindOf extends auth.ErrorKind with the HTTP only kinds.
func kindOf(err error) string {
	var ge *goerrors.Error
	if goerrors.As(err, &ge) && ge != nil {
		switch ge.TextCode {
		case TextCodeForbidden, TextCodeRateLimited:
			return ge.TextCode
		}
	}
	return auth.ErrorKind(err)
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind string) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewErrorHandler renders errors as ErrorResponse. Internal errors are
// logged with their source and answered with a generic message.
func NewErrorHandler(logger auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if goerrors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorResponse{
				Error: fe.Message,
				Code:  fiberKind(fe.Code),
			})
		}

		kind := kindOf(err)
		status := StatusFor(kind)

		res := ErrorResponse{Code: kind}

		var ge *goerrors.Error
		if status == http.StatusInternalServerError || !goerrors.As(err, &ge) {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			res.Error = "internal server error"
			res.Code = auth.TextCodeInternal
			return c.Status(http.StatusInternalServerError).JSON(res)
		}

		res.Error = ge.Message
		if kind == auth.TextCodeValidation {
			res.Details = ge.ValidationMap()
		}

		logger.Debug("request rejected",
			"method", c.Method(),
			"path", c.Path(),
			"code", kind,
			"details", print.MaybePrettyJSON(ge.Metadata),
		)

		return c.Status(status).JSON(res)
	}
}

func fiberKind(status int) string {
	switch status {
	case http.StatusNotFound:
		return "ROUTE_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return auth.TextCodeValidation
	case http.StatusTooManyRequests:
		return TextCodeRateLimited
	default:
		return auth.TextCodeInternal
	}
}

func malformedBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "request body must be valid JSON").
		WithTextCode(auth.TextCodeValidation).
		WithCode(goerrors.CodeBadRequest)
}

func invalidAccountID(raw string) error {
	return goerrors.New("invalid account id", goerrors.CategoryValidation).
		WithTextCode(auth.TextCodeValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"userId": raw})
}
