// Package hatanaka implements the Hatanaka (CRINEX) differential compression
// codec for RINEX observation streams: a streaming Compressor/Decompressor
// pair built on two small predictors — NumKernel for numeric observation and
// clock fields, TextKernel for epoch descriptor lines and LLI/SSI flag
// columns — plus the RINEX v1/v2 and v3+ epoch/observation line formats
// those predictors operate on.
//
// Both Compressor and Decompressor are strictly sequential, single-threaded
// three-state engines (epoch, clock, observation) and are not safe for
// concurrent use. A Decompressor or Compressor that returns an error from a
// state-advancing call is poisoned and must be discarded; callers resync by
// constructing a fresh instance at the next reset-marked epoch.
package hatanaka
