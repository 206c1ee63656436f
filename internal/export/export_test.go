package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodeledger/internal/parse"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/validate"
)

const (
	licA = "0x01ab23cd45ef67890123456789abcdef0123a278"
	licC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

var (
	created = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now     = time.Date(2025, 12, 6, 12, 0, 0, 0, time.UTC)
)

func mkEarning(id, node, lt string, amount float64, date string, status record.EarningStatus) record.Earning {
	ts, err := record.DateTimestamp(date)
	if err != nil {
		panic(err)
	}
	return record.Earning{ID: id, NodeID: node, LicenseType: lt, Amount: amount, Date: date, Status: status, Timestamp: ts}
}

func sampleEarnings() []record.Earning {
	return []record.Earning{
		mkEarning("e-1", "0x01...a278", "Tier 1", 0.07, "2025-12-06", record.StatusCompleted),
		mkEarning("", "0x02...b379", "", 1204.5, "2025-12-07", record.StatusPending),
		mkEarning("e-3", "0x03...c480", `Tier "A", early`, 3, "2025-12-08", record.StatusFailed),
	}
}

func sampleLicenses() record.LicenseSet {
	active := now
	return record.LicenseSet{
		licA: {
			LicenseID: licA,
			Status:    record.LicenseLeasedBound,
			LeaseInfo: &record.LeaseInfo{
				CustomerName:    "Acme",
				CustomerContact: "acme@example.com",
				StartDate:       "2025-01-01",
				DurationMonths:  12,
				RevenueShare:    30,
				Fee:             10.5,
			},
			BindingInfo: record.BindingInfo{IsBound: true, PhoneID: "phone-1", LastActive: &active},
			CreatedAt:   created,
			UpdatedAt:   now,
			Notes:       "rack 2, slot 4",
		},
		licC: {
			LicenseID:   licC,
			Status:      record.LicenseAvailable,
			BindingInfo: record.BindingInfo{DowntimeDays: 3},
			CreatedAt:   created,
			UpdatedAt:   created,
		},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEarningsCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EarningsCSV(&buf, sampleEarnings()))
	newGoldie(t).Assert(t, "earnings_csv", buf.Bytes())
}

func TestLicensesCSV_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LicensesCSV(&buf, sampleLicenses()))
	newGoldie(t).Assert(t, "licenses_csv", buf.Bytes())
}

func TestEarningsCSV_ReimportsThroughDetection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EarningsCSV(&buf, sampleEarnings()))

	res, err := parse.EarningsCSV(&buf, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "1204.50", res.Records[1]["amount"])
	assert.True(t, validate.Earnings(res.Records).IsValid)
}

func TestLicensesCSV_ReimportsWithDefaultColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LicensesCSV(&buf, sampleLicenses()))

	res, err := parse.LicensesCSV(&buf, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	batch := validate.Licenses(res.Records, nil)
	require.True(t, batch.IsValid, "%v", batch.AllErrors())

	got := record.LicenseSet{}
	for _, c := range res.Records {
		lic, err := record.ToLicense(c, now)
		require.NoError(t, err)
		got[lic.LicenseID] = lic
	}
	want := sampleLicenses()
	assert.Equal(t, *want[licA].LeaseInfo, *got[licA].LeaseInfo)
	assert.Equal(t, want[licA].Notes, got[licA].Notes)
	assert.True(t, got[licA].BindingInfo.IsBound)
	assert.Equal(t, "phone-1", got[licA].BindingInfo.PhoneID)
	assert.Equal(t, 3, got[licC].BindingInfo.DowntimeDays)
	assert.Empty(t, got[licC].BindingInfo.PhoneID, "N/A is not imported")
	assert.True(t, created.Equal(got[licC].CreatedAt))
}

func TestEarningsJSON_RoundTrip(t *testing.T) {
	want := sampleEarnings()

	var buf bytes.Buffer
	require.NoError(t, EarningsJSON(&buf, want))

	res, err := parse.EarningsJSON(buf.Bytes(), "")
	require.NoError(t, err)
	require.True(t, validate.Earnings(res.Records).IsValid)

	got := make([]record.Earning, 0, len(res.Records))
	for _, c := range res.Records {
		e, err := record.ToEarning(c)
		require.NoError(t, err)
		got = append(got, e)
	}
	assert.Equal(t, want, got)
}

func TestLicensesJSON_RoundTrip(t *testing.T) {
	want := sampleLicenses()

	var buf bytes.Buffer
	require.NoError(t, LicensesJSON(&buf, want))

	res, err := parse.LicensesJSON(buf.Bytes(), "")
	require.NoError(t, err)

	got := record.LicenseSet{}
	for _, c := range res.Records {
		lic, err := record.ToLicense(c, time.Time{})
		require.NoError(t, err)
		got[lic.LicenseID] = lic
	}
	require.Len(t, got, 2)
	for id, w := range want {
		g := got[id]
		assert.Equal(t, w.Status, g.Status)
		assert.Equal(t, w.LeaseInfo, g.LeaseInfo)
		assert.Equal(t, w.Notes, g.Notes)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		assert.True(t, w.UpdatedAt.Equal(g.UpdatedAt))
		assert.Equal(t, w.BindingInfo.IsBound, g.BindingInfo.IsBound)
		assert.Equal(t, w.BindingInfo.DowntimeDays, g.BindingInfo.DowntimeDays)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	snap := NewSnapshot(sampleEarnings(), sampleLicenses(), now)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, snap))

	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, got.Version)
	assert.True(t, now.Equal(got.ExportedAt))
	assert.Equal(t, snap.Earnings, got.Earnings)
	assert.Len(t, got.Licenses, 2)
}

func TestSnapshot_EmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SnapshotJSON(&buf, NewSnapshot(nil, nil, now)))
	assert.Contains(t, buf.String(), `"earnings": []`)
	assert.Contains(t, buf.String(), `"licenses": {}`)
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader(`{"version": 99}`))
	assert.Error(t, err)
	_, err = ReadSnapshot(strings.NewReader(`{}`))
	assert.Error(t, err)
}

func TestWrite_CSVHoldsBothTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, NewSnapshot(sampleEarnings(), sampleLicenses(), now)))
	parts := strings.SplitN(buf.String(), "\n\n", 2)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0], "ID,Date,Node ID"))
	assert.True(t, strings.HasPrefix(parts[1], "License ID,Status"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "CSV": FormatCSV, "md": FormatMarkdown, "markdown": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
	assert.Equal(t, "md", FormatMarkdown.Ext())
	assert.Equal(t, "json", FormatJSON.Ext())
}
