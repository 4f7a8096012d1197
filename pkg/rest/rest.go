// Package rest is a thin request layer over an HTTP Transport.
//
// Options describe a single request. BuildOptions merges them with the built-in defaults
// (timeout, size limit, response type, body transforms and cache-busting headers)
// and returns the TransportOptions handed to the Transport.
//
// Dispatcher sends requests by a Transport and wraps every failure into a RestError,
// see the Get, Post, Put and Delete shortcuts.
// The client.Client is a default implementation of the Transport interface based on the standard net/http package.
//
// WaitGroup and RunGroup are helpers for concurrent requests.
package rest
