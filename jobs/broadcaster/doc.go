// Package broadcaster implements a background job that mirrors every
// published trade onto a Kafka topic, for consumers that do not speak the
// hub's session protocol.
package broadcaster
