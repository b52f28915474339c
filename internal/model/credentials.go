package model

import "fmt"

// Credentials identify this storefront installation to the partner system.
// Built once at startup and passed explicitly; never mutated afterwards.
type Credentials struct {
	IntegrationID   string `json:"integration_id" yaml:"integration_id"`
	PublicKey       string `json:"public_key" yaml:"public_key"` // kid carried in token footers
	SecretKey       string `json:"secret_key" yaml:"secret_key"`
	GraphQLEndpoint string `json:"graphql_endpoint" yaml:"graphql_endpoint"`
	LocalEndpoint   string `json:"local_endpoint,omitempty" yaml:"local_endpoint"`
}

// Validate reports the first missing field required for the protocol to operate.
func (c *Credentials) Validate() error {
	if c == nil {
		return fmt.Errorf("integration credentials are not configured")
	}
	switch {
	case c.PublicKey == "":
		return fmt.Errorf("public_key is required")
	case c.SecretKey == "":
		return fmt.Errorf("secret_key is required")
	case c.IntegrationID == "":
		return fmt.Errorf("integration_id is required")
	case c.GraphQLEndpoint == "":
		return fmt.Errorf("graphql_endpoint is required")
	}
	return nil
}
