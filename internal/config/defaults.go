package config

// Backend and driver names.
const (
	BackendSQL      = "sql"
	BackendDocument = "document"

	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"

	DocumentsFS     = "fs"
	DocumentsMemory = "memory"
	DocumentsS3     = "s3"
)

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/shelfscan",
		},
		Server: Server{
			Addr: "127.0.0.1:3000",
		},
		Camera: Camera{
			Facing: "environment",
			Width:  1280,
			Height: 720,
			FPS:    15,
		},
		Decoder: Decoder{
			Readers:        []string{"code_128_reader", "ean_reader"},
			PatchSize:      "medium",
			Frequency:      10,
			TimeoutSeconds: 60,
		},
		Inventory: Inventory{
			Backend:  BackendSQL,
			Document: "inventory.json",
		},
		Database: Database{
			Driver: DriverSQLite,
		},
		Documents: Documents{
			Driver: DocumentsFS,
			S3: S3{
				Region: "us-east-1",
			},
		},
		Hooks: Hooks{
			TimeoutMs: 5000,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
