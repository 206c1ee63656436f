// Package ledger coordinates the record packages into the operations a
// caller actually performs: import a batch, edit a record, read a view,
// export or restore a snapshot, and run backups.
//
// Every mutating call follows the same path:
//
//  1. parse raw input into candidates (parse)
//  2. validate every candidate, collecting all issues (validate)
//  3. merge the valid ones under an explicit policy (merge)
//  4. commit the post-merge collection with a single store write (store)
//  5. mark the licenses of newly earning nodes as bound (license)
//  6. count the change and run a backup when one is due (backup)
//
// Step 4 is the only step whose failure fails the call. Steps 5 and 6 run
// after the commit; their failures are logged and the committed change
// stands.
//
// A Ledger serializes its mutating calls with a mutex. Read calls do not
// lock: each one is a single store read.
package ledger
