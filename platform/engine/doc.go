// Package engine provides the boot engine for platform extension services.
//
// The Engine is the host process's single entry point for extension
// services, similar to a SystemServer hook. One Run:
//   - activates the backup service for the primary user (fatal on failure)
//   - detects the boot mode once from the decrypt state property
//   - resolves, evaluates and starts every configured service in order
//   - logs the system power-save allow list
//   - exempts the companion app from battery optimizations
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                            Engine                            │
//	│                                                              │
//	│  DetectBootMode ──┐                                          │
//	│                   ▼                                          │
//	│  ids ──► Resolver ──► Evaluate ──► HostRegistry.StartService │
//	│           (plugin)   (feature,     (per-service fault        │
//	│                       core-only)    boundary)                │
//	│                                                              │
//	│  CompanionConfigurator ──► AllowList                         │
//	└──────────────────────────────────────────────────────────────┘
//
// Usage:
//
//	eng, err := engine.New(engine.Config{
//	    Services:     []string{"devicepolicy", "telemetry"},
//	    CompanionApp: engine.DefaultCompanionApp,
//	}, engine.Dependencies{
//	    Resolver:   plugin.Default,
//	    Registry:   base.NewRegistry(log),
//	    Features:   host.NewFeatureSet(features...),
//	    Properties: host.NewFileProperties(path),
//	    Backup:     host.NewFileBackup(dir),
//	    AllowList:  host.NewMemoryAllowList(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := eng.Run(ctx)
package engine
