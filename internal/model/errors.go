package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchema              = errors.New("schema error")
	ErrConfigMissing       = errors.New("config missing")
)

// UpstreamError wraps a network or HTTP failure of a price provider, the ledger
// source or the notifier.
type UpstreamError struct {
	Upstream string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// SchemaError reports missing required fields in the ledger or in a provider payload.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ConfigMissingError reports an absent setting that disables a feature.
type ConfigMissingError struct {
	Feature string
	Key     string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("%s disabled: %s not set", e.Feature, e.Key)
}

func (e *ConfigMissingError) Is(target error) bool { return target == ErrConfigMissing }
