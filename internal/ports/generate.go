// Package ports defines the interfaces and canonical data types of the weather
// acquisition layer. Adapters implement these interfaces; core use cases and
// tests depend only on them.
package ports
