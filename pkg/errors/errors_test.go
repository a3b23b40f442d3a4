package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", Clone(ErrAlreadyEnrolled, "already enrolled"))

	got := FromError(wrapped)
	assert.Equal(t, "ALREADY_ENROLLED", got.Code)
	assert.Equal(t, http.StatusBadRequest, got.Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "course not found")
	assert.Equal(t, "course not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Clone(ErrNotEnrolled, ""))
	assert.True(t, Is(err, ErrNotEnrolled))
	assert.False(t, Is(err, ErrAlreadyEnrolled))
	assert.False(t, Is(errors.New("plain"), ErrNotFound))
}

func TestInvalidListsFields(t *testing.T) {
	type lesson struct {
		Title    string `validate:"required"`
		Duration int    `validate:"gt=0"`
	}
	type payload struct {
		Lessons []lesson `validate:"dive"`
	}

	err := validator.New().Struct(payload{Lessons: []lesson{{Title: "intro"}, {Duration: 30}}})
	require.Error(t, err)

	got := Invalid(err, "invalid lesson payload")
	assert.Equal(t, "VALIDATION_ERROR", got.Code)
	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.ElementsMatch(t, []FieldError{
		{Field: "Lessons[0].Duration", Rule: "gt"},
		{Field: "Lessons[1].Title", Rule: "required"},
	}, got.Fields)

	plain := Invalid(errors.New("bad format"), "format must be csv or pdf")
	assert.Empty(t, plain.Fields)
}
