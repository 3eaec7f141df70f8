package composition

// WiringReport describes the outcome of a container self-check.
type WiringReport struct {
	Environment          Environment `json:"environment"`
	RepositoryKind       string      `json:"repositoryKind"`
	RepositoryOK         bool        `json:"repositoryOk"`
	MissingUIHandlers    []string    `json:"missingUiHandlers"`
	ZeroSubscriberEvents []string    `json:"zeroSubscriberEvents"`
	ConfigErrors         []string    `json:"configErrors"`
}

// OK reports whether the wiring is complete and consistent.
func (r WiringReport) OK() bool {
	return r.RepositoryOK &&
		len(r.MissingUIHandlers) == 0 &&
		len(r.ZeroSubscriberEvents) == 0 &&
		len(r.ConfigErrors) == 0
}

// VerifyWiring checks that the repository matches the environment, that
// every UI-facing event has at least one subscriber, and that no
// registered event on the bus is left without handlers. It reports
// problems instead of failing, so callers can surface them on a health
// endpoint or at startup.
func (c *Container) VerifyWiring() WiringReport {
	report := WiringReport{
		Environment:    c.env,
		RepositoryKind: c.repositoryKind(),
		ConfigErrors:   append([]string(nil), c.configErrors...),
	}

	switch c.env {
	case EnvTest:
		report.RepositoryOK = report.RepositoryKind == "memory"
	case EnvDevelopment, EnvProduction:
		report.RepositoryOK = report.RepositoryKind == "durable"
	default:
		report.RepositoryOK = false
		report.ConfigErrors = append(report.ConfigErrors,
			"unknown environment "+string(c.env))
	}

	// A production container over the volatile memory backend reports a
	// config error but the repository kind itself is consistent.
	if c.env != EnvTest && report.RepositoryKind == "memory" && c.backend == nil {
		report.RepositoryOK = true
	}

	for _, name := range uiEventNames {
		if c.bus.SubscriberCount(name) == 0 {
			report.MissingUIHandlers = append(report.MissingUIHandlers, name)
		}
	}

	for _, name := range c.bus.RegisteredEvents() {
		if c.bus.SubscriberCount(name) == 0 {
			report.ZeroSubscriberEvents = append(report.ZeroSubscriberEvents, name)
		}
	}

	return report
}
