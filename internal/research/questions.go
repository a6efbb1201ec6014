package research

// Question is one fixed entry of the research question bank.
type Question struct {
	Category string
	Key      string
	Text     string
}

// QuestionBank is the fixed set of research questions, grouped by category.
// Order is part of the contract: answers are emitted in this order on every
// run.
var QuestionBank = []Question{
	// Basic identification
	{"basic_info", "mission_statement", "What is the subnet's mission statement or primary goal?"},
	{"basic_info", "problem_solving", "What specific problem does this subnet aim to solve?"},
	{"basic_info", "target_audience", "Who is the target audience or user base for this subnet?"},
	{"basic_info", "unique_value_proposition", "What makes this subnet unique compared to competitors?"},

	// Team & leadership
	{"team", "team_size", "How many team members does this subnet have?"},
	{"team", "team_experience", "What is the experience level and background of the team?"},
	{"team", "leadership_quality", "Who are the key leaders and what are their credentials?"},
	{"team", "team_transparency", "How transparent is the team about their identities and backgrounds?"},

	// Product & technology
	{"product", "product_status", "What is the current status of their product/service (concept, MVP, beta, live)?"},
	{"product", "technical_approach", "What technical approach or methodology do they use?"},
	{"product", "product_differentiation", "How does their product differ from existing solutions?"},
	{"product", "scalability", "How scalable is their technical solution?"},

	// Business model
	{"business", "revenue_model", "What is their revenue model or monetization strategy?"},
	{"business", "market_size", "What is the size of their target market?"},
	{"business", "competitive_landscape", "Who are their main competitors?"},
	{"business", "partnership_strategy", "Do they have notable partnerships or collaborations?"},

	// Development & progress
	{"development", "development_activity", "How active is their development (based on GitHub, updates, etc.)?"},
	{"development", "roadmap_clarity", "How clear and detailed is their development roadmap?"},
	{"development", "milestone_achievement", "Have they achieved their stated milestones?"},
	{"development", "community_engagement", "How engaged is their community?"},

	// Risk assessment
	{"risks", "technical_risks", "What are the main technical risks or challenges?"},
	{"risks", "market_risks", "What market risks does the subnet face?"},
	{"risks", "regulatory_risks", "Are there any regulatory or compliance concerns?"},
	{"risks", "team_risks", "Are there any team-related risks (key person dependency, etc.)?"},
}
