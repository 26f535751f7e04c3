package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// newTransport builds the producer transport.
func newTransport(cfg *Config) (*kafkago.Transport, error) {
	tc, mech, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		IdleTimeout: parseDuration(cfg.IdleTimeout),
		MetadataTTL: parseDuration(cfg.MetadataTTL),
		DialTimeout: parseDuration(cfg.DialTimeout),
		TLS:         tc,
		SASL:        mech,
	}, nil
}

// newDialer builds the consumer dialer.
func newDialer(cfg *Config) (*kafkago.Dialer, error) {
	tc, mech, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       parseDuration(cfg.DialTimeout),
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: mech,
	}, nil
}

// security returns the TLS config and SASL mechanism enabled in cfg. Either may be nil.
func security(cfg *Config) (*tls.Config, sasl.Mechanism, error) {
	var tc *tls.Config
	if cfg.EnableTLS {
		var err error
		if tc, err = buildTLSConfig(cfg); err != nil {
			return nil, nil, fmt.Errorf("kafka TLS config: %w", err)
		}
	}
	var mech sasl.Mechanism
	if cfg.EnableSASL {
		var err error
		if mech, err = buildSASLMechanism(cfg); err != nil {
			return nil, nil, fmt.Errorf("kafka SASL config: %w", err)
		}
	}
	return tc, mech, nil
}

func buildTLSConfig(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tc.RootCAs = pool
	}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

// resolveCompression maps a compression name to a codec. Unknown names disable compression.
func resolveCompression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "snappy":
		return kafkago.Snappy
	default:
		return 0
	}
}
