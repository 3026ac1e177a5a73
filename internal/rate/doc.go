// Package rate tracks the arrival rate of inbound message events over a
// rolling time window. The connection layer feeds it every message-class
// event; display layers poll IsUnderThreshold to decide whether to show a
// "loading history" state while a reconnect backlog drains.
package rate
