// Package kafka carries exchange orders over a Kafka topic as JSON.
package kafka
