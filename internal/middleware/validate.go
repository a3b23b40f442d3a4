package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
	"github.com/noah-isme/tailms-api/pkg/response"
)

const bodyKey = "validated_body"

// ValidateBody binds the JSON body into T, validates it and stores it for Body.
func ValidateBody[T any](validate *validator.Validate) gin.HandlerFunc {
	if validate == nil {
		validate = validator.New()
	}
	return func(c *gin.Context) {
		var payload T
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, appErrors.Invalid(err, "invalid request body"))
			c.Abort()
			return
		}
		if err := validate.Struct(payload); err != nil {
			response.Error(c, appErrors.Invalid(err, validationMessage(err)))
			c.Abort()
			return
		}
		c.Set(bodyKey, payload)
		c.Next()
	}
}

// Body returns the payload stored by ValidateBody.
func Body[T any](c *gin.Context) (T, bool) {
	value, exists := c.Get(bodyKey)
	if !exists {
		var zero T
		return zero, false
	}
	payload, ok := value.(T)
	return payload, ok
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return appErrors.ErrValidation.Message
	}
	first := verrs[0]
	return first.Namespace() + " failed on '" + first.Tag() + "'"
}
