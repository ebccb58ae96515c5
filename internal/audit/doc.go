// Package audit records who did what through the API.
//
// Every device registration, device command and program run that comes in
// over HTTP is written to the audit_logs table with the token subject, so
// operators can answer "who flushed the toilet at 3am". Entries are
// append-only and listed newest first.
package audit
