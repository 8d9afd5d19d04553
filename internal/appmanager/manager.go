package appmanager

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"ReportMapper/api"
	"ReportMapper/internal/config"
	"ReportMapper/internal/events"
	"ReportMapper/internal/jobs"
	"ReportMapper/internal/logger"
	"ReportMapper/internal/registry"
	"ReportMapper/internal/serviceiface"
	"ReportMapper/internal/session"
)

var (
	settings = config.Default()
	sessions = session.NewManager(config.DefaultSessionTTL)
)

// Configure sets the process settings the services fall back to. Call it
// before AutoRegisterServices.
func Configure(s config.Settings) {
	settings = s
	sessions = session.NewManager(s.SessionTTL)
}

// Sessions is the editor session store shared by the gateway and the sweeper.
func Sessions() *session.Manager {
	return sessions
}

// withDefault copies cfg and fills key when services.yaml leaves it out.
func withDefault(cfg map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg)+1)
	for k, v := range cfg {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}

var serviceConstructors = map[string]func(map[string]interface{}) serviceiface.Service{
	"logger": func(cfg map[string]interface{}) serviceiface.Service {
		cfg = withDefault(cfg, "folder_path", settings.LogFolder)
		cfg = withDefault(cfg, "max_file_mb", settings.LogMaxFileMB)
		cfg = withDefault(cfg, "retention_days", settings.LogRetentionDays)
		cfg = withDefault(cfg, "console", settings.DevMode)
		return logger.NewLoggerService(cfg)
	},
	"registry": func(cfg map[string]interface{}) serviceiface.Service {
		return registry.NewRegistryService(cfg)
	},
	"events": func(cfg map[string]interface{}) serviceiface.Service {
		return events.NewSSEServer(cfg)
	},
	"sweeper": func(cfg map[string]interface{}) serviceiface.Service {
		cfg = withDefault(cfg, "sweep_schedule", settings.SweepSchedule)
		cfg = withDefault(cfg, "timezone", settings.TimeZone)
		return jobs.NewSessionSweeper(cfg, sessions)
	},
	"gateway": func(cfg map[string]interface{}) serviceiface.Service {
		return api.NewGatewayService(withDefault(cfg, "port", settings.Port))
	},
}

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex
}

func NewAppManager() *AppManager {
	return &AppManager{
		services: make([]serviceiface.Service, 0),
	}
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order. The gateway goes last
// whatever its start_order so it never serves before its dependencies run.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	for _, service := range am.services {
		if service.Name() == "gateway" {
			continue
		}
		logger.L().WithField("service", service.Name()).Info("Starting service")
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}

	for _, service := range am.services {
		if service.Name() == "gateway" {
			logger.L().WithField("service", service.Name()).Info("Starting service")
			if err := service.Start(); err != nil {
				return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
			}
		}
	}
	return nil
}

// StopAll stops services in reverse order, gateway first. Every service is
// asked to stop; the first failure is returned.
func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	ordered := make([]serviceiface.Service, 0, len(am.services))
	for _, svc := range am.services {
		if svc.Name() == "gateway" {
			ordered = append(ordered, svc)
		}
	}
	for i := len(am.services) - 1; i >= 0; i-- {
		if am.services[i].Name() != "gateway" {
			ordered = append(ordered, am.services[i])
		}
	}

	var first error
	for _, svc := range ordered {
		if err := svc.Stop(); err != nil && first == nil {
			first = fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return first
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseServiceSequence(data)
}

func ParseServiceSequence(data []byte) ([]ServiceConfig, error) {
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}

	// sort by start_order
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})

	return seq.Services, nil
}

// AutoRegisterServices builds every known service named in configs, in
// order. Unknown names are logged and skipped.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) {
	for _, svc := range configs {
		constructor, ok := serviceConstructors[svc.Name]
		if !ok {
			logger.L().WithField("service", svc.Name).Warn("unknown service in sequence, skipping")
			continue
		}
		am.RegisterService(constructor(svc.Config))
	}

	for _, svc := range am.services {
		if l, ok := svc.(*logger.LoggerService); ok {
			logger.SetGlobalLogger(l)
			break
		}
	}
}

// WireServices hands the gateway the registry, the event stream and the
// session store.
func (am *AppManager) WireServices() {
	am.mu.Lock()
	defer am.mu.Unlock()

	var (
		gw  *api.GatewayService
		reg *registry.Registry
		ev  *events.SSEServer
	)
	for _, svc := range am.services {
		switch s := svc.(type) {
		case *api.GatewayService:
			gw = s
		case *registry.Registry:
			reg = s
		case *events.SSEServer:
			ev = s
		}
	}
	if gw == nil {
		return
	}
	if reg == nil {
		reg = registry.New()
	}
	gw.Wire(api.Deps{
		Sessions:      sessions,
		Registry:      reg,
		Events:        ev,
		ReferenceYear: settings.ReferenceYear,
		SessionTTL:    settings.SessionTTL,
	})
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}
