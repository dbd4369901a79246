package todo

// DefaultTasks are the recurring daily items recreated by every reset.
var DefaultTasks = []string{"Breakfast", "Lunch", "Dinner", "Daily Walk"}
