package repository

import (
	"database/sql"
	"time"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

// sshColumns maps the optional SSH key envelope onto nullable columns.
type sshColumns struct {
	ciphertext []byte
	nonce      []byte
	tag        []byte
	keyVersion sql.NullInt64
}

func sshColumnsOf(credential *credentialsDomain.Credential) sshColumns {
	env := credential.SSHPrivateKey
	if env == nil {
		return sshColumns{}
	}
	return sshColumns{
		ciphertext: env.Ciphertext,
		nonce:      env.Nonce,
		tag:        env.Tag,
		keyVersion: sql.NullInt64{Int64: int64(env.KeyVersion), Valid: true},
	}
}

func (s sshColumns) envelope() *vaultDomain.SecretEnvelope {
	if !s.keyVersion.Valid {
		return nil
	}
	return &vaultDomain.SecretEnvelope{
		Ciphertext: s.ciphertext,
		Nonce:      s.nonce,
		Tag:        s.tag,
		KeyVersion: uint32(s.keyVersion.Int64),
	}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
