package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sectrain_backend/internal/config"
	"sectrain_backend/internal/model"
	"sectrain_backend/internal/util"
)

// maxEvaluationResponseLen bounds the free text forwarded to the
// evaluation prompt; longer submissions are rejected before any call.
const maxEvaluationResponseLen = 8000

// AIService talks to an OpenAI-compatible chat completions endpoint and
// turns replies into validated curriculum, module content and free-text
// evaluations. Transport failures and 5xx map to ai_unavailable;
// structurally invalid replies map to the extraction/generation/planning
// codes so callers can tell outage from bad output.
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []aiChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *AIService) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []aiChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &util.AIError{Code: util.AICodeUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &util.AIError{
			Code: util.AICodeUnavailable,
			Err:  fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &util.AIError{Code: util.AICodeExtractionFailed, Err: err}
	}
	if completion.Error != nil {
		return "", &util.AIError{Code: util.AICodeUnavailable, Err: fmt.Errorf("%s", completion.Error.Message)}
	}
	if len(completion.Choices) == 0 {
		return "", &util.AIError{Code: util.AICodeExtractionFailed, Err: fmt.Errorf("empty choices")}
	}
	return completion.Choices[0].Message.Content, nil
}

// extractJSON peels a markdown code fence off a model reply when
// present; models wrap JSON in fences no matter what the prompt says.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

const curriculumSystemPrompt = "You are a security awareness training designer. " +
	"Respond with JSON only, no prose, matching the schema in the user message exactly."

type generatedCurriculum struct {
	Modules []struct {
		Title                 string `json:"title"`
		TopicArea             string `json:"topicArea"`
		Summary               string `json:"summary"`
		JobExpectationIndices []int  `json:"jobExpectationIndices"`
	} `json:"modules"`
}

func (s *AIService) parseCurriculum(raw string, expectationCount, maxModules int) (*model.Curriculum, error) {
	var generated generatedCurriculum
	if err := json.Unmarshal([]byte(extractJSON(raw)), &generated); err != nil {
		return nil, &util.AIError{Code: util.AICodeExtractionFailed, Err: err}
	}
	if len(generated.Modules) == 0 {
		return nil, &util.AIError{Code: util.AICodePlanningFailed, Err: fmt.Errorf("no modules planned")}
	}
	if len(generated.Modules) > maxModules {
		generated.Modules = generated.Modules[:maxModules]
	}

	curriculum := &model.Curriculum{GeneratedAt: time.Now().UTC()}
	for i, m := range generated.Modules {
		if m.Title == "" || m.TopicArea == "" {
			return nil, &util.AIError{Code: util.AICodePlanningFailed, Err: fmt.Errorf("module %d missing title or topic", i)}
		}
		for _, idx := range m.JobExpectationIndices {
			if idx < 0 || idx >= expectationCount {
				return nil, &util.AIError{
					Code: util.AICodePlanningFailed,
					Err:  fmt.Errorf("module %d references job expectation %d of %d", i, idx, expectationCount),
				}
			}
		}
		curriculum.Modules = append(curriculum.Modules, model.ModuleOutline{
			Title:                 m.Title,
			TopicArea:             m.TopicArea,
			Summary:               m.Summary,
			JobExpectationIndices: m.JobExpectationIndices,
		})
	}
	return curriculum, nil
}

func (s *AIService) GenerateCurriculum(ctx context.Context, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error) {
	prompt := fmt.Sprintf(
		"Plan a security training curriculum of at most %d modules for the role %q.\n"+
			"Job expectations (reference them by zero-based index):\n%s\n"+
			"Schema: {\"modules\":[{\"title\":string,\"topicArea\":string,\"summary\":string,\"jobExpectationIndices\":[int]}]}",
		maxModules, profile.Name, numberedList(profile.JobExpectations),
	)

	raw, err := s.chat(ctx, curriculumSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return s.parseCurriculum(raw, len(profile.JobExpectations), maxModules)
}

func (s *AIService) GenerateRemediationCurriculum(ctx context.Context, weakAreas []string, profile *model.RoleProfile, maxModules int) (*model.Curriculum, error) {
	prompt := fmt.Sprintf(
		"Plan a remediation curriculum of at most %d modules for the role %q, "+
			"focused only on these weak areas: %s.\n"+
			"Job expectations (reference them by zero-based index):\n%s\n"+
			"Schema: {\"modules\":[{\"title\":string,\"topicArea\":string,\"summary\":string,\"jobExpectationIndices\":[int]}]}",
		maxModules, profile.Name, strings.Join(weakAreas, ", "), numberedList(profile.JobExpectations),
	)

	raw, err := s.chat(ctx, curriculumSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return s.parseCurriculum(raw, len(profile.JobExpectations), maxModules)
}

type generatedContent struct {
	Instruction string `json:"instruction"`
	Scenarios   []struct {
		Situation string `json:"situation"`
		Prompt    string `json:"prompt"`
		Rubric    string `json:"rubric"`
	} `json:"scenarios"`
	Quiz []struct {
		Question string `json:"question"`
		Options  []struct {
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"options"`
		Explanation string `json:"explanation"`
	} `json:"quiz"`
}

func (s *AIService) GenerateModuleContent(ctx context.Context, outline model.ModuleOutline, profile *model.RoleProfile) (*model.ModuleContent, error) {
	prompt := fmt.Sprintf(
		"Write a security training module titled %q (topic: %s) for the role %q.\nSummary: %s\n"+
			"Produce instruction text, 1-3 free-response scenarios each with a grading rubric, "+
			"and 2-5 multiple-choice questions with exactly one correct option each.\n"+
			"Schema: {\"instruction\":string,\"scenarios\":[{\"situation\":string,\"prompt\":string,\"rubric\":string}],"+
			"\"quiz\":[{\"question\":string,\"options\":[{\"text\":string,\"correct\":bool}],\"explanation\":string}]}",
		outline.Title, outline.TopicArea, profile.Name, outline.Summary,
	)

	raw, err := s.chat(ctx, curriculumSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var generated generatedContent
	if err := json.Unmarshal([]byte(extractJSON(raw)), &generated); err != nil {
		return nil, &util.AIError{Code: util.AICodeExtractionFailed, Err: err}
	}
	if generated.Instruction == "" || len(generated.Quiz) == 0 {
		return nil, &util.AIError{Code: util.AICodeGenerationFailed, Err: fmt.Errorf("missing instruction or quiz")}
	}

	content := &model.ModuleContent{Instruction: generated.Instruction}
	for i, sc := range generated.Scenarios {
		if sc.Prompt == "" || sc.Rubric == "" {
			return nil, &util.AIError{Code: util.AICodeGenerationFailed, Err: fmt.Errorf("scenario %d missing prompt or rubric", i)}
		}
		content.Scenarios = append(content.Scenarios, model.Scenario{
			ID:        model.GenerateUUID(),
			Situation: sc.Situation,
			Prompt:    sc.Prompt,
			Rubric:    sc.Rubric,
		})
	}
	for i, q := range generated.Quiz {
		if q.Question == "" || len(q.Options) < 2 {
			return nil, &util.AIError{Code: util.AICodeGenerationFailed, Err: fmt.Errorf("quiz item %d malformed", i)}
		}
		correct := 0
		question := model.QuizQuestion{ID: model.GenerateUUID(), Question: q.Question, Explanation: q.Explanation}
		for j, opt := range q.Options {
			if opt.Correct {
				correct++
			}
			question.Options = append(question.Options, model.QuizOption{
				ID:      fmt.Sprintf("%s-%d", question.ID, j),
				Text:    opt.Text,
				Correct: opt.Correct,
			})
		}
		if correct != 1 {
			return nil, &util.AIError{
				Code: util.AICodeGenerationFailed,
				Err:  fmt.Errorf("quiz item %d has %d correct options, want exactly 1", i, correct),
			}
		}
		content.Quiz = append(content.Quiz, question)
	}
	return content, nil
}

type evaluationResult struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// EvaluateFreeText implements FreeTextEvaluator against the same
// provider. Range validation happens again in the scoring service; this
// check exists so a bad reply is classified where it occurred.
func (s *AIService) EvaluateFreeText(ctx context.Context, question, rubric, response string) (float64, string, error) {
	if len(response) > maxEvaluationResponseLen {
		return 0, "", &util.AIError{
			Code: util.AICodeEvaluationFailed,
			Err:  fmt.Errorf("response length %d exceeds limit %d", len(response), maxEvaluationResponseLen),
		}
	}

	prompt := fmt.Sprintf(
		"Grade the employee response against the rubric.\nQuestion: %s\nRubric: %s\nResponse: %s\n"+
			"Schema: {\"score\":number between 0 and 1,\"rationale\":string}",
		question, rubric, response,
	)

	raw, err := s.chat(ctx, "You are a strict but fair grader. Respond with JSON only.", prompt)
	if err != nil {
		return 0, "", err
	}

	var result evaluationResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return 0, "", &util.AIError{Code: util.AICodeEvaluationFailed, Err: err}
	}
	if result.Score < 0 || result.Score > 1 {
		return 0, "", &util.AIError{Code: util.AICodeEvaluationFailed, Err: fmt.Errorf("score %v out of range", result.Score)}
	}
	return result.Score, result.Rationale, nil
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i, item)
	}
	return b.String()
}
