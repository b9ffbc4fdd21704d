// Command podium runs the webcam presentation controller.
package main

func main() {
	Execute()
}
