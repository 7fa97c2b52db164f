package events

type Bus interface {
	Publish(subject string, data []byte, msgID string) error
	Drain() error
}
