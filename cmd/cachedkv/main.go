// Command cachedkv reads and writes keys through a write-behind cache.
package main

func main() {
	Execute()
}
