package model

import (
	"errors"
	"time"
)

// Kind is the change observed on a path
type Kind uint8

const (
	Created Kind = iota + 1
	Deleted
)

// String returns the wire name used in webservice URLs
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Event is one detected change. It is never mutated after detection.
type Event struct {
	Kind        Kind
	Path        string // absolute path
	IsDirectory bool
	ObservedAt  time.Time
}

// WatchTarget is the tree being watched
type WatchTarget struct {
	Root      string
	Recursive bool
}

var (
	ErrEmptyRoot      = errors.New("watch root is empty")
	ErrPartialSink    = errors.New("webservice address and port must be set together")
	ErrPortOutOfRange = errors.New("webservice port must be between 1 and 65535")
)

func (t WatchTarget) Validate() error {
	if t.Root == "" {
		return ErrEmptyRoot
	}
	return nil
}

// SinkConfig selects where events go. Address and Port are both set for the
// remote webservice, or both empty for the local sink.
type SinkConfig struct {
	Address string
	Port    int
	Timeout time.Duration
}

// Remote reports whether events are forwarded to a webservice
func (c SinkConfig) Remote() bool {
	return c.Address != "" && c.Port != 0
}

func (c SinkConfig) Validate() error {
	if (c.Address == "") != (c.Port == 0) {
		return ErrPartialSink
	}
	if c.Port < 0 || c.Port > 65535 {
		return ErrPortOutOfRange
	}
	return nil
}
