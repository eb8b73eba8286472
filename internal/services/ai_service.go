package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
	"taskpilot/internal/utils"
	"taskpilot/internal/validation"
)

// AIService issues requests to the remote model and normalizes the responses.
// Every operation degrades to a deterministic fallback value on transport or
// parse failure; none of them ever returns an error to the caller. The AI
// dependency is unreliable and the product has to survive its absence.
type AIService struct {
	cfg          config.AIConfig
	httpClient   *http.Client
	openaiClient *openai.Client
	quizSchema   *gojsonschema.Schema
	helpSchema   *gojsonschema.Schema

	// Now is the clock used for document timestamps, overridable in tests
	Now func() time.Time
}

// NewAIService creates a new AI service. Schema files are optional: if they
// cannot be loaded, responses are accepted without schema validation.
func NewAIService(cfg config.AIConfig) *AIService {
	s := &AIService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		Now:        time.Now,
	}

	if cfg.Provider == "openai" {
		s.openaiClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	quizSchema, err := validation.LoadSchema(filepath.Join(cfg.SchemaDir, "quiz_schema.json"))
	if err != nil {
		log.Printf("WARNING: quiz schema not loaded, skipping response validation: %v", err)
	} else {
		s.quizSchema = quizSchema
	}

	helpSchema, err := validation.LoadSchema(filepath.Join(cfg.SchemaDir, "help_schema.json"))
	if err != nil {
		log.Printf("WARNING: help schema not loaded, skipping response validation: %v", err)
	} else {
		s.helpSchema = helpSchema
	}

	return s
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// callGeminiAPI makes an HTTP request to the Gemini API
func (s *AIService) callGeminiAPI(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	// Gemini doesn't separate system/user roles the way OpenAI does
	fullPrompt := systemPrompt + "\n\n" + userPrompt

	model := s.cfg.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}

	maxTokens := s.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fullPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     s.cfg.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if wantJSON {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(s.cfg.GeminiBaseURL, "/"), model, s.cfg.GeminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Gemini API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// callOpenAI makes a chat completion request via the OpenAI client
func (s *AIService) callOpenAI(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	model := s.cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(s.cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if s.cfg.MaxTokens > 0 {
		req.MaxTokens = s.cfg.MaxTokens
	}
	if wantJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := s.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// generate dispatches to the configured provider
func (s *AIService) generate(ctx context.Context, systemPrompt, userPrompt string, wantJSON bool) (string, error) {
	if s.cfg.Provider == "openai" {
		return s.callOpenAI(ctx, systemPrompt, userPrompt, wantJSON)
	}
	return s.callGeminiAPI(ctx, systemPrompt, userPrompt, wantJSON)
}

// cleanJSON strips markdown code fences and any preamble/postamble text
// around the outermost JSON object
func cleanJSON(text string) string {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	if firstBrace != -1 && lastBrace != -1 && lastBrace > firstBrace {
		cleaned = cleaned[firstBrace : lastBrace+1]
	}

	return strings.TrimSpace(cleaned)
}

// NormalizeTask cleans up a raw task submission and decides whether the
// stateless processing endpoint should answer with a quiz or with help.
// Falls back to a quiz routing decision with middling complexity when the
// AI is unreachable.
func (s *AIService) NormalizeTask(ctx context.Context, title, description string, category models.TaskCategory) models.NormalizedTask {
	systemPrompt := "You are a task triage assistant for a productivity app. You normalize tasks and route them."

	prompt := fmt.Sprintf(`Normalize this task, identify its category, extract keywords, estimate complexity (1-10), and choose the next step.

Return JSON ONLY in this exact schema:
{
  "normalizedTitle": "string",
  "normalizedDescription": "string",
  "category": "string",
  "keywords": ["list", "of", "keywords"],
  "complexity": 5,
  "nextAgent": "QuizAgent" or "HelpAgent"
}

Task:
Title: %s
Description: %s
Category: %s`, title, description, category)

	fallback := models.NormalizedTask{
		NormalizedTitle:       title,
		NormalizedDescription: description,
		Category:              string(category),
		Keywords:              []string{},
		Complexity:            5,
		NextAgent:             "QuizAgent",
	}
	if fallback.Category == "" {
		fallback.Category = "General"
	}

	raw, err := s.generate(ctx, systemPrompt, prompt, true)
	if err != nil {
		log.Printf("WARNING: task normalization failed for %q: %v", title, err)
		return fallback
	}

	var normalized models.NormalizedTask
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &normalized); err != nil {
		log.Printf("WARNING: failed to parse normalization JSON for %q: %v", title, err)
		return fallback
	}

	if normalized.NextAgent != "QuizAgent" && normalized.NextAgent != "HelpAgent" {
		normalized.NextAgent = "QuizAgent"
	}
	if normalized.NormalizedTitle == "" {
		normalized.NormalizedTitle = title
	}
	return normalized
}

// GenerateQuiz produces a multiple-choice quiz verifying completion of the
// task. Research tasks get questions grounded on the user-supplied context
// URL; Networking tasks get questions about concrete contact details. On any
// failure the caller gets a single fallback question, never an empty slice.
func (s *AIService) GenerateQuiz(ctx context.Context, task models.Task, contextURL string) []models.QuizQuestion {
	systemPrompt := "You are a verification assistant for a productivity app. You create short multiple choice quizzes that test whether a task was genuinely completed."

	prompt := fmt.Sprintf(`Generate a 5-question multiple choice quiz to verify completion of: %q.
Desc: %q. Category: %s.

Return JSON ONLY in this exact schema:
{
  "questions": [
    {
      "question": "string",
      "options": ["A", "B", "C", "D"],
      "correctIndex": 0
    }
  ]
}`, task.Title, task.Description, task.Category)

	if contextURL != "" {
		prompt += fmt.Sprintf("\nUser resource: %s. Base questions on this.", contextURL)
	}

	if task.Category == models.CategoryNetworking {
		prompt = fmt.Sprintf(`The user contacted recruiters for the task %q. Generate 5 questions checking specific details of the contacts made (e.g. "What city was the recruiter in?", "What skill did they mention?").

Return JSON ONLY in this exact schema:
{
  "questions": [
    {
      "question": "string",
      "options": ["A", "B", "C", "D"],
      "correctIndex": 0
    }
  ]
}`, task.Title)
	}

	raw, err := s.generate(ctx, systemPrompt, prompt, true)
	if err != nil {
		log.Printf("WARNING: quiz generation failed for task %s: %v", task.ID, err)
		return fallbackQuiz()
	}

	cleaned := cleanJSON(raw)
	if s.quizSchema != nil {
		if err := validation.ValidateJSON(cleaned, s.quizSchema); err != nil {
			log.Printf("WARNING: quiz response failed schema validation for task %s: %v", task.ID, err)
			return fallbackQuiz()
		}
	}

	var payload struct {
		Questions []models.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		log.Printf("WARNING: failed to parse quiz JSON for task %s: %v", task.ID, err)
		return fallbackQuiz()
	}

	// Drop questions the scorer could not handle
	questions := []models.QuizQuestion{}
	for _, q := range payload.Questions {
		if q.Question == "" || len(q.Options) < 2 || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		log.Printf("WARNING: quiz response for task %s had no usable questions", task.ID)
		return fallbackQuiz()
	}

	return questions
}

// fallbackQuiz is the single-question quiz used when the AI is unavailable,
// so the quiz UI never receives an empty result
func fallbackQuiz() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			Question:     "AI verification currently unavailable. Did you honestly complete the task?",
			Options:      []string{"Yes, I promise", "No, not yet"},
			CorrectIndex: 0,
		},
	}
}

// GenerateHelp produces guidance content for a stuck user, embedding the
// profile bio and any uploaded document as context. Never returns a nil-ish
// value: on failure the fixed generic strategy content comes back instead.
func (s *AIService) GenerateHelp(ctx context.Context, task models.Task, profile models.UserProfile) models.HelpContent {
	systemPrompt := "You are a supportive productivity assistant. You help users finish tasks they are stuck on with concrete guidance, resources and steps."

	documentContent := profile.DocumentContent
	if documentContent == "" {
		documentContent = "None"
	}

	prompt := fmt.Sprintf(`Help the user finish this task: %q.
Context: %q.
User Bio: %q.
User Document Content: %q.

Provide a guide, resources, and steps.

Return JSON ONLY in this exact schema:
{
  "summary": "short explanation",
  "keyPoints": ["point 1", "point 2"],
  "actionableSteps": ["step 1", "step 2"],
  "resources": [
    {"title": "Resource 1", "url": "https://example.com", "type": "article"}
  ],
  "messageDraft": ""
}
The "type" of each resource must be one of "video", "article" or "code".`,
		task.Title, task.Description, profile.Bio, documentContent)

	if task.Category == models.CategoryNetworking {
		prompt += "\nFind 5 types of people to contact. Write a 250-character connection message in \"messageDraft\" based on the bio and document."
	}

	raw, err := s.generate(ctx, systemPrompt, prompt, true)
	if err != nil {
		log.Printf("WARNING: help generation failed for task %s: %v", task.ID, err)
		return fallbackHelp()
	}

	cleaned := cleanJSON(raw)
	if s.helpSchema != nil {
		if err := validation.ValidateJSON(cleaned, s.helpSchema); err != nil {
			log.Printf("WARNING: help response failed schema validation for task %s: %v", task.ID, err)
			return fallbackHelp()
		}
	}

	var content models.HelpContent
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		log.Printf("WARNING: failed to parse help JSON for task %s: %v", task.ID, err)
		return fallbackHelp()
	}

	if content.Summary == "" {
		return fallbackHelp()
	}
	return content
}

// fallbackHelp is the fixed generic strategy shown when the AI is unreachable
func fallbackHelp() models.HelpContent {
	return models.HelpContent{
		Summary:   "We couldn't connect to the AI right now (check the API key or quota). Here is a generic strategy.",
		KeyPoints: []string{"Break the task into 5 minute chunks", "Remove phone distractions", "Just start writing"},
		Resources: []models.HelpResource{
			{
				Title: "Pomodoro Technique",
				URL:   "https://todoist.com/productivity-methods/pomodoro-technique",
				Type:  models.ResourceArticle,
			},
		},
		ActionableSteps: []string{"Set a timer for 25 minutes", "Work on the first step only"},
		MessageDraft:    "",
	}
}

// VerifyNetworkingNames asks whether the provided names are plausible
// contacts for the task context. Defaults to trusting the user when the AI
// fails or answers ambiguously, rather than blocking progress.
func (s *AIService) VerifyNetworkingNames(ctx context.Context, names []string, task models.Task) bool {
	systemPrompt := "You verify claims for a productivity app. Answer strictly in JSON."

	prompt := fmt.Sprintf(`The user contacted these people: %s for the task %q.
Are these plausible names or related to the context? Return JSON: { "verified": boolean }.`,
		strings.Join(names, ", "), task.Title)

	raw, err := s.generate(ctx, systemPrompt, prompt, true)
	if err != nil {
		log.Printf("WARNING: name verification failed for task %s, trusting user: %v", task.ID, err)
		return true
	}

	var payload struct {
		Verified *bool `json:"verified"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &payload); err != nil {
		log.Printf("WARNING: failed to parse verification JSON for task %s, trusting user: %v", task.ID, err)
		return true
	}

	// Only an explicit false counts as a rejection
	return payload.Verified == nil || *payload.Verified
}

// RecommendNextTasks asks for three next-task suggestions grounded on the
// mastery scores. Falls back to revisiting the weakest topics when the AI
// is unreachable, never returning an empty list.
func (s *AIService) RecommendNextTasks(ctx context.Context, skills map[string]float64) []models.TaskRecommendation {
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		log.Printf("WARNING: failed to marshal mastery scores: %v", err)
		return fallbackRecommendations(skills)
	}

	systemPrompt := "You are a learning coach for a productivity app. You suggest next tasks based on mastery scores."

	prompt := fmt.Sprintf(`Based on mastery scores:
%s

Recommend 3 ideal next tasks.

Return ONLY JSON:
{
  "recommendations": [
    {"title": "string", "reason": "string"},
    {"title": "string", "reason": "string"},
    {"title": "string", "reason": "string"}
  ]
}`, string(skillsJSON))

	raw, err := s.generate(ctx, systemPrompt, prompt, true)
	if err != nil {
		log.Printf("WARNING: recommendation generation failed: %v", err)
		return fallbackRecommendations(skills)
	}

	var payload struct {
		Recommendations []models.TaskRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &payload); err != nil {
		log.Printf("WARNING: failed to parse recommendations JSON: %v", err)
		return fallbackRecommendations(skills)
	}

	recommendations := []models.TaskRecommendation{}
	for _, r := range payload.Recommendations {
		if r.Title == "" {
			continue
		}
		recommendations = append(recommendations, r)
	}
	if len(recommendations) == 0 {
		return fallbackRecommendations(skills)
	}
	return recommendations
}

// fallbackRecommendations suggests revisiting the weakest tracked topics,
// or a generic starter when nothing has been quizzed yet
func fallbackRecommendations(skills map[string]float64) []models.TaskRecommendation {
	titles := make([]string, 0, len(skills))
	for title := range skills {
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool {
		if skills[titles[i]] != skills[titles[j]] {
			return skills[titles[i]] < skills[titles[j]]
		}
		return titles[i] < titles[j]
	})

	recommendations := []models.TaskRecommendation{}
	for _, title := range titles {
		if len(recommendations) == 3 {
			break
		}
		recommendations = append(recommendations, models.TaskRecommendation{
			Title:  "Revisit: " + title,
			Reason: fmt.Sprintf("Mastery is at %.0f%%; another pass will consolidate it.", skills[title]*100),
		})
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, models.TaskRecommendation{
			Title:  "Pick one small task and verify it",
			Reason: "No mastery history yet; completing a first verified task starts the trend line.",
		})
	}
	return recommendations
}

// GenerateSpreadsheet produces a CSV report over all tasks with a short AI
// note per row. On failure it returns an error-flagged placeholder document
// rather than an error.
func (s *AIService) GenerateSpreadsheet(ctx context.Context, tasks []models.Task, profile models.UserProfile) (title, content string) {
	type taskSummary struct {
		Title    string              `json:"title"`
		Status   models.TaskStatus   `json:"status"`
		Category models.TaskCategory `json:"category"`
		DueDate  string              `json:"dueDate"`
	}
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, taskSummary{
			Title:    t.Title,
			Status:   t.Status,
			Category: t.Category,
			DueDate:  t.DueDate,
		})
	}
	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		log.Printf("WARNING: failed to marshal task summaries: %v", err)
		return errorSpreadsheet()
	}

	systemPrompt := "You are a productivity analyst. You produce clean CSV reports."
	prompt := fmt.Sprintf(`Create a CSV report for these tasks: %s.
The user is: %s.

CSV Format Rules:
1. First line must be headers: "Task Name, Category, Status, Due Date, AI Notes".
2. "AI Notes" column should be a short, encouraging or analytical 5-word comment on the task status.
3. Return ONLY the raw CSV text. No markdown blocks.`, string(summaryJSON), profile.Name)

	raw, err := s.generate(ctx, systemPrompt, prompt, false)
	if err != nil {
		log.Printf("WARNING: spreadsheet generation failed: %v", err)
		return errorSpreadsheet()
	}

	csvContent := strings.ReplaceAll(raw, "```csv", "")
	csvContent = strings.ReplaceAll(csvContent, "```", "")
	csvContent = strings.TrimSpace(csvContent)
	if csvContent == "" {
		return errorSpreadsheet()
	}

	filename := fmt.Sprintf("Productivity_Report_%s.csv", utils.FormatDate(s.Now()))
	return filename, csvContent
}

// errorSpreadsheet is the placeholder returned when report generation fails
func errorSpreadsheet() (title, content string) {
	return "Error_Report.csv", "Error,Could not generate report\nPlease,Try again later"
}
