package middleware

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "simple", input: "42", want: 42},
		{name: "single digit", input: "1", want: 1},
		{name: "large", input: "999999999", want: 999999999},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "non numeric", input: "abc", wantErr: true},
		{name: "mixed", input: "12abc", wantErr: true},
		{name: "decimal", input: "1.5", wantErr: true},
		{name: "too long", input: strings.Repeat("9", MaxLidDigits+1), wantErr: true},
		{name: "leading plus", input: "+7", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLid(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLid) {
					t.Errorf("ParseLid(%q) error = %v, want ErrInvalidLid", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLid(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLid(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateGroupPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty is valid", input: ""},
		{name: "simple", input: "campaign-2026"},
		{name: "underscores", input: "spring_sale"},
		{name: "mixed case", input: "MyPage"},
		{name: "too long", input: strings.Repeat("a", MaxGroupPageLength+1), wantErr: ErrGroupPageTooLong},
		{name: "spaces", input: "my page", wantErr: ErrGroupPageInvalid},
		{name: "slash", input: "a/b", wantErr: ErrGroupPageInvalid},
		{name: "unicode", input: "pagé", wantErr: ErrGroupPageInvalid},
		{name: "reserved api", input: "api", wantErr: ErrGroupPageReserved},
		{name: "reserved case insensitive", input: "Admin", wantErr: ErrGroupPageReserved},
		{name: "reserved lid", input: "lid", wantErr: ErrGroupPageReserved},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateGroupPage(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateGroupPage(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDestinationURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "https", input: "https://example.com/page"},
		{name: "http", input: "http://example.com"},
		{name: "uppercase scheme", input: "HTTPS://example.com"},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", MaxDestinationURLLength), wantErr: ErrDestinationTooLong},
		{name: "no scheme", input: "example.com", wantErr: ErrDestinationInvalid},
		{name: "ftp", input: "ftp://example.com", wantErr: ErrDestinationInvalid},
		{name: "javascript embedded", input: "https://example.com/?u=javascript:alert(1)", wantErr: ErrDestinationUnsafe},
		{name: "data embedded", input: "https://example.com/?u=data:text/html,x", wantErr: ErrDestinationUnsafe},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateDestinationURL(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDestinationURL(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
