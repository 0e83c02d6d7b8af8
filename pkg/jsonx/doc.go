// Package jsonx implements a self-describing serialization format for
// object graphs layered on plain JSON.
//
// Encode turns a live value into a JSON-safe tree; Decode mirrors it back.
// Type identity survives the round trip: a tagged envelope carries the
// value's classpath under the reserved "@" key, with the inner state
// either inlined (when it is itself a JSON object) or nested under the
// reserved "=" key. References to externally identified objects encode as
// their bare numeric id and decode through a Resolver into lazy handles,
// never eagerly loaded by the codec itself.
//
// Plain records that happen to use "@" as an ordinary field are wrapped
// with the "(dict)" flag so application data can never be mistaken for an
// envelope. Class objects themselves (reflect.Type values) travel under
// the "(type)" flag.
//
// The codec is a pure synchronous transform: it holds no mutable state
// across calls and is safe for concurrent use once the classpath registry
// it reads from has been built.
package jsonx
