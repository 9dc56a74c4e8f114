// Command mealplanctl runs the meal plan pipeline from the terminal
package main

func main() {
	Execute()
}
