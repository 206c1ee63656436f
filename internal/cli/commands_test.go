package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/nodeledger/internal/config"
	"github.com/roach88/nodeledger/internal/export"
	"github.com/roach88/nodeledger/internal/ledger"
	"github.com/roach88/nodeledger/internal/record"
	"github.com/roach88/nodeledger/internal/testutil"
)

const pasted = "0x01...a278\n+ $0.07\ncompleted / 06 Dec 2025"

var fullID = "0x01" + strings.Repeat("0", 34) + "a278"

// testEnv is a bolt database and backup directory under t.TempDir with a
// fixed clock.
type testEnv struct {
	dir   string
	cfg   *config.Config
	clock *testutil.FixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Backend = "bolt"
	cfg.Store.Path = filepath.Join(dir, "ledger.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	return &testEnv{dir: dir, cfg: cfg, clock: testutil.NewFixedClock(time.Time{})}
}

// run executes one command line against the environment and returns
// stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{Config: e.cfg, Logger: zap.NewNop(), Clock: e.clock}
	cmd := newRootCommand(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	require.NoError(t, err, "nodeledger %s", strings.Join(args, " "))
	return out
}

// data decodes the data field of a JSON success response into v.
func data(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// licenseData decodes a license response into a fresh value so omitted
// fields do not carry over from an earlier response.
func licenseData(t *testing.T, out string) record.License {
	t.Helper()
	var lic record.License
	data(t, out, &lic)
	return lic
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportEarningsFromStdin(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, pasted, "import", "earnings")
	assert.Contains(t, out, "Imported 1 earning(s) with policy add-all")

	out = env.mustRun(t, "", "earnings", "list", "--format", "json")
	var earnings []record.Earning
	data(t, out, &earnings)
	require.Len(t, earnings, 1)
	assert.Equal(t, "0x01...a278", earnings[0].NodeID)
	assert.Equal(t, 0.07, earnings[0].Amount)
	assert.Equal(t, "2025-12-06", earnings[0].Date)
}

func TestImportSkipPolicyIgnoresKnownRecords(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, pasted, "import", "earnings")

	out := env.mustRun(t, pasted, "import", "earnings", "--policy", "skip", "--format", "json")
	var report ledger.ImportReport
	data(t, out, &report)
	assert.Equal(t, 0, report.Outcome.AddedCount)
	assert.Equal(t, 1, report.Outcome.DuplicateCount)

	out = env.mustRun(t, "", "earnings", "list", "--format", "json")
	var earnings []record.Earning
	data(t, out, &earnings)
	assert.Len(t, earnings, 1)
}

func TestImportCSVWithColumnMapping(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "payouts.csv", "Paid On,Device,USD\n2025-12-05,0x01...a278,1.50\n2025-12-04,0x02...b389,2.25\n")

	out := env.mustRun(t, "", "import", "earnings", path, "--columns", "date=Paid On,nodeId=Device,amount=USD")
	assert.Contains(t, out, "Imported 2 earning(s)")
}

func TestImportCSVBadColumnMapping(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "payouts.csv", "Paid On,Device,USD\n2025-12-05,0x01...a278,1.50\n")

	_, err := env.run(t, "", "import", "earnings", path, "--columns", "date=Missing,nodeId=Device,amount=USD")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportNothingValid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "hello\nworld", "import", "earnings")
	require.Error(t, err)
	assert.Equal(t, "NO_VALID_RECORDS", ErrorCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var re *ReportError
	require.ErrorAs(t, err, &re)
	report, ok := re.Report.(ledger.ImportReport)
	require.True(t, ok)
	assert.NotEmpty(t, report.Unparsed)
}

func TestImportUnknownPolicy(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, pasted, "import", "earnings", "--policy", "merge")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --policy")
}

func TestImportLicensesCSV(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "inventory.csv", "License ID,Status,Notes\n"+fullID+",self-run,rack 1\n")

	out := env.mustRun(t, "", "import", "licenses", path)
	assert.Contains(t, out, "added: 1")

	out = env.mustRun(t, "", "license", "list", "--format", "json")
	var list []record.License
	data(t, out, &list)
	require.Len(t, list, 1)
	assert.Equal(t, record.LicenseSelfRun, list[0].Status)
	assert.Equal(t, "rack 1", list[0].Notes)
}

func TestImportLicensesRejectsText(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "anything", "import", "licenses", "--source", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv or json")
}

func TestImportBindsLicense(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "license", "add", fullID, "--status", "self-run")

	out := env.mustRun(t, pasted, "import", "earnings")
	assert.Contains(t, out, "licenses bound: "+fullID)

	out = env.mustRun(t, "", "license", "show", fullID, "--format", "json")
	var lic record.License
	data(t, out, &lic)
	assert.True(t, lic.BindingInfo.IsBound)
}

func TestLicenseLifecycle(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "", "license", "add", fullID, "--status", "leased-bound", "--customer", "Acme", "--fee", "25", "--revenue-share", "30")
	assert.Contains(t, out, "Added license "+fullID)

	_, err := env.run(t, "", "license", "add", fullID)
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE", ErrorCode(err))

	out = env.mustRun(t, "", "license", "show", fullID, "--format", "json")
	lic := licenseData(t, out)
	require.NotNil(t, lic.LeaseInfo)
	assert.Equal(t, "Acme", lic.LeaseInfo.CustomerName)
	assert.Equal(t, 30.0, lic.LeaseInfo.RevenueShare)

	out = env.mustRun(t, "", "license", "status", fullID, "self-run", "--format", "json")
	lic = licenseData(t, out)
	assert.Equal(t, record.LicenseSelfRun, lic.Status)
	assert.Nil(t, lic.LeaseInfo)

	_, err = env.run(t, "", "license", "status", fullID, "retired")
	require.Error(t, err)
	assert.Equal(t, "FORMAT", ErrorCode(err))

	out = env.mustRun(t, "", "license", "bind", fullID, "--phone", "pixel-7", "--format", "json")
	lic = licenseData(t, out)
	assert.True(t, lic.BindingInfo.IsBound)
	assert.Equal(t, "pixel-7", lic.BindingInfo.PhoneID)

	out = env.mustRun(t, "", "license", "unbind", fullID, "--format", "json")
	lic = licenseData(t, out)
	assert.False(t, lic.BindingInfo.IsBound)

	out = env.mustRun(t, "", "license", "note", fullID, "moved to shelf", "--format", "json")
	lic = licenseData(t, out)
	assert.Equal(t, "moved to shelf", lic.Notes)

	out = env.mustRun(t, "", "license", "delete", fullID)
	assert.Contains(t, out, "Deleted license "+fullID)

	_, err = env.run(t, "", "license", "show", fullID)
	require.Error(t, err)
	assert.Equal(t, "STATE_INCONSISTENCY", ErrorCode(err))
}

func TestLicenseAddInvalidAddress(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "license", "add", "0xZZ")
	require.Error(t, err)
	assert.Equal(t, "FORMAT", ErrorCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLicensePattern(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "license", "add", fullID, "--status", "self-run")
	env.mustRun(t, pasted, "import", "earnings")

	out := env.mustRun(t, "", "license", "pattern", fullID, "--days", "3")
	assert.Contains(t, out, "2025-12-06")
	assert.Contains(t, out, "Active 1 of 3 day(s)")
}

func TestEarningsUpdateDeleteClear(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, pasted+"\n0x02...b389\n+ $1.25\npending / 05 Dec 2025", "import", "earnings")

	out := env.mustRun(t, "", "earnings", "list", "--format", "json")
	var earnings []record.Earning
	data(t, out, &earnings)
	require.Len(t, earnings, 2)

	pending := earnings[1]
	require.Equal(t, record.StatusPending, pending.Status)
	out = env.mustRun(t, "", "earnings", "update", pending.ID, "--status", "Completed", "--format", "json")
	var updated record.Earning
	data(t, out, &updated)
	assert.Equal(t, record.StatusCompleted, updated.Status)

	_, err := env.run(t, "", "earnings", "update", "missing-id", "--status", "failed")
	require.Error(t, err)
	assert.Equal(t, "STATE_INCONSISTENCY", ErrorCode(err))

	out = env.mustRun(t, "", "earnings", "delete", pending.ID, "missing-id")
	assert.Contains(t, out, "Deleted 1 of 2 earning(s)")

	_, err = env.run(t, "", "earnings", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out = env.mustRun(t, "", "earnings", "clear", "--yes")
	assert.Contains(t, out, "Cleared 1 earning(s)")
}

func TestEarningsListFilterAndLimit(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, pasted+"\n0x02...b389\n+ $1.25\ncompleted / 05 Dec 2025", "import", "earnings")

	out := env.mustRun(t, "", "earnings", "list", "--node", fullID, "--format", "json")
	var earnings []record.Earning
	data(t, out, &earnings)
	require.Len(t, earnings, 1)
	assert.Equal(t, "0x01...a278", earnings[0].NodeID)

	out = env.mustRun(t, "", "earnings", "list", "--limit", "1")
	assert.Contains(t, out, "2025-12-06")
	assert.NotContains(t, out, "2025-12-05")
}

func TestStatsAndReport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, pasted, "import", "earnings")

	out := env.mustRun(t, "", "stats")
	assert.Contains(t, out, "Transactions")
	assert.Contains(t, out, export.Money(0.07))

	out = env.mustRun(t, "", "report")
	assert.Contains(t, out, "# Node Earnings Report")

	out = env.mustRun(t, "", "report", "--pretty")
	assert.Contains(t, out, "Node Earnings Report")
}

func TestUnbound(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "license", "add", fullID, "--status", "self-run")
	other := "0x02" + strings.Repeat("0", 34) + "b389"
	env.mustRun(t, "", "license", "add", other, "--status", "self-run")
	env.mustRun(t, pasted, "import", "earnings")

	out := env.mustRun(t, "", "unbound", "--format", "json")
	var resp struct {
		Days     int                     `json:"days"`
		Licenses []ledger.UnboundLicense `json:"licenses"`
	}
	data(t, out, &resp)
	assert.Equal(t, env.cfg.DormantDays, resp.Days)
	require.Len(t, resp.Licenses, 1)
	assert.Equal(t, other, resp.Licenses[0].LicenseID)
	assert.True(t, resp.Licenses[0].NeverEarned)

	env.clock.Advance(10 * 24 * time.Hour)
	out = env.mustRun(t, "", "unbound", "--days", "5")
	assert.Contains(t, out, fullID)
	assert.Contains(t, out, "never")
}

func TestExportAndRestore(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "license", "add", fullID, "--status", "self-run")
	env.mustRun(t, pasted, "import", "earnings")

	snapPath := filepath.Join(env.dir, "snapshot.json")
	out := env.mustRun(t, "", "export", "snapshot", "--out", snapPath)
	assert.Contains(t, out, "Exported snapshot as json")

	csvOut := env.mustRun(t, "", "export", "earnings", "--to", "csv")
	assert.Contains(t, csvOut, "0x01...a278")

	fresh := newTestEnv(t)
	out = fresh.mustRun(t, "", "restore", snapPath)
	assert.Contains(t, out, "Restored 1 earning(s) and 1 license(s)")

	out = fresh.mustRun(t, "", "earnings", "list", "--format", "json")
	var restored []record.Earning
	data(t, out, &restored)

	out = env.mustRun(t, "", "earnings", "list", "--format", "json")
	var original []record.Earning
	data(t, out, &original)
	assert.Equal(t, original, restored)
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, pasted, "import", "earnings")
	path := env.write(t, "bad.json", `{"version":1,"earnings":[{"id":"x","nodeId":"0x01...a278","amount":-1,"date":"2025-12-06","status":"completed"}],"licenses":{}}`)

	_, err := env.run(t, "", "restore", path)
	require.Error(t, err)
	assert.Equal(t, "FORMAT", ErrorCode(err))

	out := env.mustRun(t, "", "earnings", "list", "--format", "json")
	var earnings []record.Earning
	data(t, out, &earnings)
	assert.Len(t, earnings, 1)
}

func TestExportUnknownTarget(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "export", "receipts")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBackupConfigureAndRun(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "", "backup", "configure", "--enabled", "--frequency", "every_10_changes", "--to", "csv", "--format", "json")
	var st ledger.BackupStatus
	data(t, out, &st)
	assert.True(t, st.Settings.Enabled)
	assert.Equal(t, 10, st.Settings.ChangeThreshold)
	assert.Equal(t, export.FormatCSV, st.Settings.Format)

	env.mustRun(t, pasted, "import", "earnings")
	out = env.mustRun(t, "", "backup", "status", "--format", "json")
	data(t, out, &st)
	assert.Equal(t, 1, st.Changes)
	assert.False(t, st.Due)

	out = env.mustRun(t, "", "backup", "run")
	assert.Contains(t, out, "nodeledger-backup-20251206-120000-0001.csv")

	entries, err := os.ReadDir(env.cfg.Backup.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "nodeledger-backup-20251206-120000-0001.csv", entries[0].Name())

	// Same clock second: the second backup gets its own file.
	env.mustRun(t, "", "backup", "run")
	entries, err = os.ReadDir(env.cfg.Backup.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "nodeledger-backup-20251206-120000-0002.csv", entries[1].Name())

	out = env.mustRun(t, "", "backup", "status", "--format", "json")
	data(t, out, &st)
	assert.Equal(t, 2, st.Settings.TotalBackups)
}

func TestBackupConfigureInvalidFrequency(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "backup", "configure", "--frequency", "hourly")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
