package db

import _ "embed"

//go:embed schema.sql
var Schema string

type RunOutcome string

const (
	RUN_RUNNING   RunOutcome = "running"
	RUN_COMPLETED RunOutcome = "completed"
	RUN_ANOMALY   RunOutcome = "anomaly"
	RUN_FAILED    RunOutcome = "failed"
)
