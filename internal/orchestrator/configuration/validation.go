package configuration

import (
	"fmt"
)

func ValidateOrchestratorConfiguration(config OrchestratorConfiguration) error {
	switch config.Policy.Type {
	case PolicySimulated, PolicyBatch, PolicyAdaptive:
	default:
		return fmt.Errorf("unknown policy type %q, expected one of %q, %q, %q",
			config.Policy.Type, PolicySimulated, PolicyBatch, PolicyAdaptive)
	}
	if config.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if config.Policy.PollInterval <= 0 {
		return fmt.Errorf("policy poll interval must be positive, got %s", config.Policy.PollInterval)
	}
	if config.Policy.Type != PolicyBatch && config.Policy.Duration <= 0 {
		return fmt.Errorf("policy duration must be positive for the %q policy, got %s",
			config.Policy.Type, config.Policy.Duration)
	}
	if config.Policy.Type == PolicyAdaptive {
		if config.Adaptive.BaseEpochs < 1 {
			return fmt.Errorf("adaptive base epochs must be at least 1, got %d", config.Adaptive.BaseEpochs)
		}
		if config.Adaptive.Slope == 0 {
			return fmt.Errorf("adaptive slope must not be zero")
		}
	}
	if config.Execution.TemplatesPath == "" {
		return fmt.Errorf("execution templates path must not be empty")
	}
	return nil
}
