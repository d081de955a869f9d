package quizmaker

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const submitQuestionsTool = "submit_questions"

// ChatCompleter is the part of *openai.Client the question maker needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// QuestionMaker asks the model for a batch of questions
type QuestionMaker struct {
	client ChatCompleter
	model  string
}

// NewQuestionMaker creates a question maker on top of an OpenAI-compatible client
func NewQuestionMaker(client ChatCompleter, model string) *QuestionMaker {
	if model == "" {
		model = openai.GPT4o
	}
	return &QuestionMaker{
		client: client,
		model:  model,
	}
}

// NewOpenAIClient builds the client from an API key and optional base URL.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// GenerateQuestions makes exactly one model call and returns the raw payload
// holding the {"questions": [...]} object. It does not validate the questions.
func (qm *QuestionMaker) GenerateQuestions(ctx context.Context, req GenerationRequest, logger *LLMLogger) (string, error) {
	log.Printf("Generating %d %s questions for topic: %s", req.NumQuestions, req.Difficulty, req.Topic)

	prompt := qm.buildPrompt(req)
	if logger != nil {
		logger.LogLLMRequest("QuestionMaker", prompt)
	}

	resp, err := qm.client.CreateChatCompletion(ctx, qm.buildRequest(req, prompt))
	if err != nil {
		return "", &GenerationError{Kind: ErrTransport, Err: err}
	}

	VerboseLog("Received response from %s with %d choices", qm.model, len(resp.Choices))

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: ErrEmptyResponse, Detail: "no choices in response"}
	}

	msg := resp.Choices[0].Message
	payload := ""
	for _, call := range msg.ToolCalls {
		if call.Function.Name == submitQuestionsTool {
			payload = call.Function.Arguments
			break
		}
	}
	// Models that ignore the forced tool call may still answer in JSON mode.
	if payload == "" {
		payload = msg.Content
	}

	if logger != nil {
		logger.LogLLMResponse("QuestionMaker", payload)
	}

	if strings.TrimSpace(payload) == "" {
		return "", &GenerationError{Kind: ErrEmptyResponse, Detail: "no tool call or content in response"}
	}
	return payload, nil
}

func (qm *QuestionMaker) buildRequest(req GenerationRequest, prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: qm.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are an expert quiz maker. Create %d multiple-choice questions about %s. "+
					"Each question must have exactly 4 options. Give the correct answer as a 0-based index. "+
					"Include a brief explanation for each correct answer.", req.NumQuestions, req.Topic),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        submitQuestionsTool,
					Description: "Submit generated quiz questions",
					Parameters:  questionsSchema(),
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: submitQuestionsTool,
			},
		},
	}
}

func questionsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"minItems":    OptionsPerQuestion,
							"maxItems":    OptionsPerQuestion,
							"description": "Array of 4 multiple choice options",
						},
						"correct_answer": map[string]interface{}{
							"type":        "integer",
							"minimum":     0,
							"maximum":     OptionsPerQuestion - 1,
							"description": "0-based index of the correct answer",
						},
						"explanation": map[string]interface{}{
							"type":        "string",
							"description": "Brief explanation of why the answer is correct",
						},
					},
					"required": []string{"question", "options", "correct_answer", "explanation"},
				},
			},
		},
		"required": []string{"questions"},
	}
}

func (qm *QuestionMaker) buildPrompt(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d multiple choice questions about: %s\n\n", req.NumQuestions, req.Topic))
	sb.WriteString(fmt.Sprintf("Difficulty level: %s\n", req.Difficulty))
	sb.WriteString(req.Difficulty.Instruction())
	sb.WriteString("\n\n")

	sb.WriteString("Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Return exactly %d questions\n", req.NumQuestions))
	sb.WriteString("- Each question must have exactly 4 multiple choice options\n")
	sb.WriteString("- correct_answer is the 0-based index of the right option (0 to 3)\n")
	sb.WriteString("- Incorrect options should be plausible but clearly wrong\n")
	sb.WriteString("- Avoid questions where the answer is given away in the question text\n")
	sb.WriteString("- Provide a brief explanation for why the correct answer is right\n")
	sb.WriteString("- Use the submit_questions tool to return your questions as {\"questions\": [...]}\n")

	return sb.String()
}
