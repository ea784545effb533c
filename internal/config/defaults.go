package config

const (
	defaultUploadDir          = "~/.local/share/fauna/uploads"
	defaultLogDir             = "~/.local/share/fauna/logs"
	defaultAPIBind            = "127.0.0.1:7512"
	defaultClassifierEndpoint = "http://127.0.0.1:5001/classify"
	defaultClassifierTimeout  = 60
	defaultModelVersion       = "v1.0"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultReclaimInterval    = 30
	defaultClaimTimeout       = 300
	defaultHeartbeatInterval  = 15
	defaultWorkerCount        = 1
	defaultBatchSize          = 8
	defaultMaxPayloadAttempts = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Classifier: Classifier{
			Endpoint:       defaultClassifierEndpoint,
			ModelVersion:   defaultModelVersion,
			TimeoutSeconds: defaultClassifierTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			ReclaimInterval:    defaultReclaimInterval,
			ClaimTimeout:       defaultClaimTimeout,
			HeartbeatInterval:  defaultHeartbeatInterval,
			WorkerCount:        defaultWorkerCount,
			BatchSize:          defaultBatchSize,
			MaxPayloadAttempts: defaultMaxPayloadAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
