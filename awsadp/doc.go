// Package awsadp provides AWS adapters for aipkit interfaces.
//
// S3EventLog: implements EventLog using AWS S3, one object per event
// S3NotificationStore: implements NotificationStore using AWS S3
// SQSDeliveryQueue: implements DeliveryQueue using AWS SQS, and parses SQS Lambda events
//
// These adapters are compatible with minio and ElasticMQ for local development,
// allowing seamless transition between local and AWS environments.
package awsadp
