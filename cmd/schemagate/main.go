// Command schemagate validates JSON documents against JSON Schema 2020-12
// schemas, from the command line or as an HTTP gateway and JSON-RPC server.
package main

func main() {
	Execute()
}
