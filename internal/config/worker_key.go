package config

type WorkerKeyStruct struct {
	PersistRewardsQueue string
	PersistAuditQueue   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistRewardsQueue: "persist_rewards_queue",
	PersistAuditQueue:   "persist_audit_queue",
}
