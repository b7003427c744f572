package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// Credentials is the bundle handed to the crawler by the caller. The crawler
// never parses key material itself; the bundle is turned into an opaque
// configuration provider and every service client is built from that.
type Credentials struct {
	UserID      string `json:"userId"`
	TenancyID   string `json:"tenancyId"`
	Fingerprint string `json:"fingerprint"`
	Region      string `json:"region"`
	PrivateKey  string `json:"privateKey"`
}

// LoadCredentials accepts either inline JSON or a path to a JSON file.
func LoadCredentials(source string) (*Credentials, error) {
	data := []byte(source)
	if !strings.HasPrefix(strings.TrimSpace(source), "{") {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file %s: %w", source, err)
		}
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Validate checks that every required field is present.
func (c *Credentials) Validate() error {
	missing := []string{}
	if c.UserID == "" {
		missing = append(missing, "userId")
	}
	if c.TenancyID == "" {
		missing = append(missing, "tenancyId")
	}
	if c.Fingerprint == "" {
		missing = append(missing, "fingerprint")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "privateKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("credentials missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Provider builds the OCI configuration provider for these credentials.
func (c *Credentials) Provider() common.ConfigurationProvider {
	return common.NewRawConfigurationProvider(c.TenancyID, c.UserID, c.Region, c.Fingerprint, c.PrivateKey, nil)
}
