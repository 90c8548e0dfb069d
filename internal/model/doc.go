package model

// Package model defines domain data structures used across the app: batches,
// items and stream variants, service-side batch tasks, status enums, and the
// session events pushed to clients. Events are typed per kind and validated
// before they are sent.
