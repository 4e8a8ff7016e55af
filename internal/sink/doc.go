// Package sink provides the optional downstream outputs of a crawl.
//
//   - KafkaPublisher publishes every stored page as a JSON PageEvent, the
//     hand-off to the text-conversion service.
//   - GraphWriter mirrors pages and their links into Neo4j.
//   - RedisStatusMirror keeps the latest status of every crawl job in Redis
//     so that other processes can poll progress without opening the database.
//
// Every sink implements crawler.PageSink or crawler.JobObserver. Sink
// errors are logged by the crawler and never fail a job.
//
// The transports are reached through narrow interfaces (messageWriter,
// DriverSessioner, StatusClient) so tests substitute gomock mocks from
// internal/mocks.
package sink
