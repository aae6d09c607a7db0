package transport

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/utils"
)

// TrustStoreLoader returns the root certificates a transport verifies servers against.
type TrustStoreLoader func(caFile string) (*x509.CertPool, error)

// LoadTrustStore loads the platform default trust store and appends the PEM bundle at caFile,
// if one is given.
func LoadTrustStore(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system trust store: %w", err)
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}

	if caFile == "" {
		return pool, nil
	}

	if err := utils.ValidatePath(caFile, true); err != nil {
		return nil, err
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return pool, nil
}

func loadTrustStore(loader TrustStoreLoader, caFile string) (*x509.CertPool, error) {
	if loader == nil {
		loader = LoadTrustStore
	}
	pool, err := loader(caFile)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTrustStore, err, "failed to load trust store").
			WithComponent("transport").
			WithContext("ca_file", caFile)
	}
	return pool, nil
}
