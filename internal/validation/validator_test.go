package validation

import "testing"

type registerRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	MACAddr  string `validate:"mac"`
	Key      []byte `validate:"max=64"`
}

func TestValidateRequired(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&registerRequest{Password: "supersecret"})
	if err == nil {
		t.Error("missing email must be rejected")
	}

	err = v.Validate(&registerRequest{Email: "user@example.com", Password: "supersecret"})
	if err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	v := NewValidator()

	for _, bad := range []string{"nope", "@host", "user@"} {
		err := v.Validate(&registerRequest{Email: bad, Password: "supersecret"})
		if err == nil {
			t.Errorf("email %q must be rejected", bad)
		}
	}
}

func TestValidateLengths(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&registerRequest{Email: "user@example.com", Password: "short"})
	if err == nil {
		t.Error("password under min length must be rejected")
	}

	err = v.Validate(&registerRequest{
		Email:    "user@example.com",
		Password: "supersecret",
		Key:      make([]byte, 65),
	})
	if err == nil {
		t.Error("key over max length must be rejected")
	}
}

func TestValidateMAC(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&registerRequest{
		Email:    "user@example.com",
		Password: "supersecret",
		MACAddr:  "12:34:56:78:9A:BC",
	})
	if err != nil {
		t.Errorf("valid MAC rejected: %v", err)
	}

	err = v.Validate(&registerRequest{
		Email:    "user@example.com",
		Password: "supersecret",
		MACAddr:  "not-a-mac",
	})
	if err == nil {
		t.Error("invalid MAC must be rejected")
	}
}

func TestValidateNonStruct(t *testing.T) {
	v := NewValidator()
	if err := v.Validate(42); err == nil {
		t.Error("non-struct input must be rejected")
	}
}
