package inference

// Internal hooks for white-box tests.
var (
	PinvForTest        = pinv
	TwoTailedPForTest  = twoTailedP
	QuadFormForTest    = quadForm
	TotalHerForTest    = totalHeritability
	SolveRegularizedFn = solveRegularized
)
