package bankaccount

import (
	"time"

	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/types"
)

// Credential is a per-tenant bank-account credential: the mTLS material
// and client secret used against the banking API plus the cached bearer
// token. Created by the admin flow; this subsystem only refreshes the
// token fields and never deletes a credential.
type Credential struct {
	// Unique identifier for this credential
	ID string `db:"id" json:"id"`
	// The alias shown to operators
	Alias string `db:"alias" json:"alias"`
	// The environment the credential points at (sandbox, production)
	Environment string `db:"environment" json:"environment"`
	// The client_id for the OAuth2 client-credentials exchange
	ClientID string `db:"client_id" json:"client_id"`
	// The client_secret for the OAuth2 client-credentials exchange
	ClientSecret string `db:"client_secret" json:"-"`
	// The certificate_pem is the mTLS client certificate
	CertificatePEM string `db:"certificate_pem" json:"-"`
	// The private_key_pem is the mTLS client key
	PrivateKeyPEM string `db:"private_key_pem" json:"-"`
	// The token is the last issued bearer token (optional)
	Token *string `db:"token" json:"-"`
	// The token_issued_at timestamp of the last exchange (optional)
	TokenIssuedAt *time.Time `db:"token_issued_at" json:"token_issued_at,omitempty"`
	// The token_expires_in seconds declared by the provider (optional)
	TokenExpiresIn *int `db:"token_expires_in" json:"token_expires_in,omitempty"`
	// The is_default flag marks the tenant's default credential
	IsDefault bool `db:"is_default" json:"is_default"`

	types.BaseModel
}

// Validate checks the material needed to authenticate to the provider.
// A failure here is a configuration error: fatal for the tenant's items,
// never retried until the credential changes.
func (c *Credential) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ierr.NewError("missing client credentials").
			WithHint("Bank account credential is missing client id or secret").
			WithReportableDetails(map[string]any{
				"bank_account_id": c.ID,
			}).
			Mark(ierr.ErrConfiguration)
	}
	if c.CertificatePEM == "" || c.PrivateKeyPEM == "" {
		return ierr.NewError("missing mtls material").
			WithHint("Bank account credential is missing the client certificate or key").
			WithReportableDetails(map[string]any{
				"bank_account_id": c.ID,
			}).
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// TableName returns the table name for the credential
func (c *Credential) TableName() string {
	return "bank_account_credentials"
}
