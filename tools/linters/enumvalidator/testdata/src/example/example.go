package example

type ActionType string

const (
	ActionWriteFile     ActionType = "write_file"
	ActionSynthesizeAnswer ActionType = "synthesize_answer"
)

type TaskType string

const (
	TaskSimpleQuestion TaskType = "simple_question"
)

type Plan struct {
	Action ActionType
}

type Task struct {
	TaskType TaskType
}

func bad() {
	p := &Plan{}
	p.Action = "deploy" // want "enum field Action assigned string literal"

	t := &Task{}
	t.TaskType = "urgent_task" // want "enum field TaskType assigned string literal"
}

func badLiteral() {
	_ = Plan{Action: "deploy"} // want "enum field Action assigned string literal"
}

func good() {
	p := &Plan{}
	p.Action = ActionWriteFile // OK: using constant

	t := &Task{}
	t.TaskType = TaskSimpleQuestion // OK: using constant
}

func alsoGood() {
	// OK: variable, not literal
	action := ActionWriteFile
	p := &Plan{Action: action}
	_ = p
}
