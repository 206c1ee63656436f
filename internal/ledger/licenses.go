package ledger

import (
	"context"

	"github.com/roach88/nodeledger/internal/license"
	"github.com/roach88/nodeledger/internal/record"
)

// AddLicense stores a new license. The id is normalized; an id already in
// the inventory is a DUPLICATE error.
func (l *Ledger) AddLicense(ctx context.Context, lic record.License) (record.License, error) {
	return l.mutateLicense(ctx, "add license", func() (record.License, error) {
		return l.licenses.Add(ctx, lic)
	})
}

// UpdateLicense changes the notes or phone of a license.
func (l *Ledger) UpdateLicense(ctx context.Context, id string, patch license.Patch) (record.License, error) {
	return l.mutateLicense(ctx, "update license", func() (record.License, error) {
		return l.licenses.Update(ctx, id, patch)
	})
}

// SetLicenseStatus moves a license to status. A nil lease keeps the stored
// lease info; non-leased statuses drop it.
func (l *Ledger) SetLicenseStatus(ctx context.Context, id string, status record.LicenseStatus, lease *record.LeaseInfo) (record.License, error) {
	return l.mutateLicense(ctx, "set license status", func() (record.License, error) {
		return l.licenses.SetStatus(ctx, id, status, lease)
	})
}

// SetLicenseBinding sets the binding flag explicitly.
func (l *Ledger) SetLicenseBinding(ctx context.Context, id string, isBound bool, phoneID string) (record.License, error) {
	return l.mutateLicense(ctx, "set license binding", func() (record.License, error) {
		return l.licenses.SetBinding(ctx, id, isBound, phoneID)
	})
}

// DeleteLicense removes a license from the inventory. Earnings of its node
// are kept.
func (l *Ledger) DeleteLicense(ctx context.Context, id string) error {
	_, err := l.mutateLicense(ctx, "delete license", func() (record.License, error) {
		return record.License{}, l.licenses.Delete(ctx, id)
	})
	return err
}

func (l *Ledger) mutateLicense(ctx context.Context, op string, apply func() (record.License, error)) (record.License, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lic, err := apply()
	if err != nil {
		return record.License{}, err
	}
	l.changed(ctx, op)
	return lic, nil
}
