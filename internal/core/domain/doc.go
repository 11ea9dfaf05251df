// Package domain defines the error taxonomy shared by the ssess core.
//
// Every failure the crypt provider, the storage backends and the session
// orchestrator can report is one of the sentinels in errors.go. Sentinels
// compare by code, so a copy carrying details or a cause still matches
// with errors.Is.
//
// Code format: SS-<AREA>-<NNNN>. The first digit of the number follows
// HTTP conventions (1 = configuration, 4 = caller or data problem,
// 5 = environment failure).
package domain
