package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "empty name maps correctly",
			err:         ValidationError{Field: ColName, Message: "required field is empty"},
			wantCode:    "VAL001",
			wantMessage: "Required field is empty",
		},
		{
			name:        "bad entity type maps correctly",
			err:         ValidationError{Field: ColEntityType, Message: "entity type must be term or node"},
			wantCode:    "VAL002",
			wantMessage: "Entity type is not recognized",
		},
		{
			name:        "bad urn maps correctly",
			err:         ValidationError{Field: ColURN, Message: "urn must start with urn:li:<type>:"},
			wantCode:    "VAL003",
			wantMessage: "Identifier is not a URN",
		},
		{
			name:        "missing header columns maps correctly",
			err:         errors.New("missing required columns: name"),
			wantCode:    "VAL004",
			wantMessage: "Required column is missing from the file",
		},
		{
			name:        "empty file maps correctly",
			err:         ErrEmptyFile,
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "no header maps correctly",
			err:         fmt.Errorf("analyze: %w", ErrNoHeader),
			wantCode:    "FILE006",
			wantMessage: "No header row was found",
		},
		{
			name:        "missing snapshot file maps correctly",
			err:         errors.New("load snapshot: open /tmp/x.json: no such file or directory"),
			wantCode:    "SNAP001",
			wantMessage: "Existing entities could not be found",
		},
		{
			name:        "snapshot decode maps correctly",
			err:         errors.New("decode snapshot: unexpected end of JSON input"),
			wantCode:    "SNAP002",
			wantMessage: "Existing entities could not be decoded",
		},
		{
			name:        "database down maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "SNAP003",
			wantMessage: "Existing entities could not be loaded",
		},
		{
			name:        "deadline maps correctly",
			err:         context.DeadlineExceeded,
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "busy preview limiter maps correctly",
			err:         errors.New("too many concurrent previews, please try again later"),
			wantCode:    "RATE002",
			wantMessage: "The server is busy with other previews",
		},
		{
			name:        "bad spreadsheet maps correctly",
			err:         errors.New("invalid xlsx: zip: not a valid zip file"),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid spreadsheet",
		},
		{
			name:        "bad json body maps correctly",
			err:         errors.New("invalid request body: unexpected EOF"),
			wantCode:    "REQ003",
			wantMessage: "Request body could not be read",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("EMPTY FILE uploaded"),
			wantCode:    "FILE005",
			wantMessage: "The uploaded file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyFile)

	expected := "The uploaded file is empty (Code: FILE005). Please upload a file with a header and data rows"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNoRows,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("decode snapshot: invalid character")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Existing entities could not be decoded" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
