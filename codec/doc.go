// Package codec converts cached values to and from byte payloads.
//
// Every stored payload is tagged with the name of the codec that produced
// it, so values round-trip without reflection or per-type adapters. Codecs
// are looked up through an explicitly constructed Registry.
package codec
