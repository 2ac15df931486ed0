package environments

// Environment selects logging and server behavior per deployment target.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Staging     Environment = "staging"
	Test        Environment = "test"
)
