package registry

import "errors"

var (
	// ErrTopicAlreadyExists is returned by CreateTopic for a name
	// already present in the registry.
	ErrTopicAlreadyExists = errors.New("topic already exists")

	// ErrTopicNotFound is returned by DeleteTopic, Subscribe,
	// Unsubscribe, and Publish when the named topic is absent.
	ErrTopicNotFound = errors.New("topic not found")
)
