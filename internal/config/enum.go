package config

import (
	"fmt"
	"strings"
)

// Environment selects the default settings for a deployment
type Environment string

const (
	EnvLocal   Environment = "local"
	EnvDev     Environment = "dev"
	EnvQA      Environment = "qa"
	EnvStage   Environment = "stage"
	EnvPreProd Environment = "preprod"
	EnvProd    Environment = "prod"
)

// Environments lists every known environment
var Environments = []Environment{EnvLocal, EnvDev, EnvQA, EnvStage, EnvPreProd, EnvProd}

// ParseEnvironment parses an environment name
func ParseEnvironment(s string) (Environment, error) {
	v := Environment(strings.ToLower(strings.TrimSpace(s)))
	for _, env := range Environments {
		if v == env {
			return env, nil
		}
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// Transport is the wire the tool server is reachable on
type Transport string

const (
	TransportSSE   Transport = "sse"
	TransportStdio Transport = "stdio"
)

// ParseTransport parses a transport name
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case TransportSSE:
		return TransportSSE, nil
	case TransportStdio:
		return TransportStdio, nil
	default:
		return "", fmt.Errorf("unknown server type %q (want sse or stdio)", s)
	}
}

// String implements pflag.Value
func (t *Transport) String() string {
	return string(*t)
}

// Set implements pflag.Value
func (t *Transport) Set(s string) error {
	v, err := ParseTransport(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Type implements pflag.Value
func (t *Transport) Type() string {
	return "sse|stdio"
}
