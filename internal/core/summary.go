package core

// Summary is income, expense and net over a set of entries.
type Summary struct {
	Income  Money
	Expense Money
	Net     Money
	Count   int
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     Money
}

// PocketBalanceLine is a pocket with its derived balance.
type PocketBalanceLine struct {
	Pocket  Pocket
	Balance Money
}

// Report is a summary over a date range with spend broken down by category.
type Report struct {
	Range      Range
	Summary    Summary
	ByCategory []CategoryAmount
}

// Dashboard is the compact overview of an owner's money.
type Dashboard struct {
	Period  Period
	Total   Money
	Pockets []PocketBalanceLine
	Budgets []BudgetLine
	Goals   []GoalProgress
	Recent  []Entry
}
