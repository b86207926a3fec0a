package middleware

import (
	"errors"
	"fmt"

	domainContent "github.com/AzielCF/az-post/domains/content"
	domainCredential "github.com/AzielCF/az-post/domains/credential"
	domainPost "github.com/AzielCF/az-post/domains/post"
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				var res utils.ResponseData
				res.Status = 500
				res.Code = "INTERNAL_SERVER_ERROR"
				res.Message = fmt.Sprintf("%v", err)

				logrus.Errorf("Panic recovered in middleware: %v", err)

				if generic, ok := err.(pkgError.GenericError); ok {
					res.Status = generic.StatusCode()
					res.Code = generic.ErrCode()
					res.Message = generic.Error()
				} else if cause, ok := err.(error); ok {
					generic := classify(cause)
					res.Status = generic.StatusCode()
					res.Code = generic.ErrCode()
					res.Message = cause.Error()
				}

				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}

// classify wraps domain sentinel errors in the matching pkg/error type so
// handlers can panic with them directly and still get the right HTTP mapping.
func classify(err error) pkgError.GenericError {
	switch {
	case errors.Is(err, domainPost.ErrPostNotFound),
		errors.Is(err, domainContent.ErrContentNotFound),
		errors.Is(err, domainCredential.ErrCredentialNotFound),
		errors.Is(err, domainRecurrence.ErrRuleNotFound):
		return pkgError.NotFoundError(err.Error())
	case errors.Is(err, domainPost.ErrDuplicatePending),
		errors.Is(err, domainPost.ErrAlreadyHandled),
		errors.Is(err, domainRecurrence.ErrVersionConflict),
		errors.Is(err, domainCredential.ErrCredentialExpired):
		return pkgError.ConflictError(err.Error())
	default:
		return pkgError.InternalServerError(err.Error())
	}
}
