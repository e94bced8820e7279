// Package logger wraps zap with a global sugared logger and context helpers.
//
// Services take a context and pull their logger from it, so a name or a set
// of fields attached once (WithName, WithKV) follows every log line written
// further down the call chain.
package logger
