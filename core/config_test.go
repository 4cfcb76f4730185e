package core

import "testing"

func TestConfig_Validate(t *testing.T) {
	conf := &Config{Debug: true}
	if err := conf.Validate(); err != nil {
		t.Errorf("Validate() on a debug config = %v, want nil", err)
	}

	conf = &Config{Env: "PROD"}
	if err := conf.Validate(); err == nil {
		t.Error("Validate() on an empty prod config, want error")
	}

	conf = &Config{
		Env:            "PROD",
		SecretKey:      "k",
		SendgridAPIKey: "k",
		RollbarToken:   "k",
		Database:       DatabaseConfig{Password: "p"},
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("Validate() on a complete prod config = %v, want nil", err)
	}
}
