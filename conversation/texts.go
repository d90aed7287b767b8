package conversation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Texts is everything the bot says. Defaults carry the original
// Russian copy; a YAML text pack can override any subset for another
// locale. Welcome takes the consent token, Privacy the retention days
// and Erased the deleted-row count as format arguments.
type Texts struct {
	Welcome         string   `yaml:"welcome"`
	ConsentDeclined string   `yaml:"consent_declined"`
	BudgetPrompt    string   `yaml:"budget_prompt"`
	BudgetRetry     string   `yaml:"budget_retry"`
	SkillsPrompt    string   `yaml:"skills_prompt"`
	TimePrompt      string   `yaml:"time_prompt"`
	TimeChoices     []string `yaml:"time_choices"`
	Generating      string   `yaml:"generating"`
	ResultPrefix    string   `yaml:"result_prefix"`
	ProOffer        string   `yaml:"pro_offer"`
	ProPitch        string   `yaml:"pro_pitch"`
	ProThanks       string   `yaml:"pro_thanks"`
	Cancelled       string   `yaml:"cancelled"`
	NeedText        string   `yaml:"need_text"`
	NeedStart       string   `yaml:"need_start"`
	MoreUnavailable string   `yaml:"more_unavailable"`
	Privacy         string   `yaml:"privacy"`
	Terms           string   `yaml:"terms"`
	About           string   `yaml:"about"`
	Help            string   `yaml:"help"`
	Erased          string   `yaml:"erased"`
	AdminCleared    string   `yaml:"admin_cleared"`
	Apology         string   `yaml:"apology"`
}

func DefaultTexts() Texts {
	return Texts{
		Welcome: "Привет! Я 🤖 AI Idea Lab. Задам 3 вопроса и подберу идеи микробизнеса под твои условия.\n\n" +
			"Твои ответы сохраняются обезличенно (только хэш чата). Подробнее: /privacy\n\n" +
			"Если согласен — отправь слово %s одним сообщением.",
		ConsentDeclined: "Понимаю. Без согласия продолжить не могу. Если передумаешь — снова нажми /start.",
		BudgetPrompt: "💰 Сколько денег ты готов вложить на старте? (можно 0, если хочешь без вложений)\n" +
			"Примеры: 0, 1000, 5000",
		BudgetRetry:  "Укажи число. Примеры: 0, 1000, 5000",
		SkillsPrompt: "🧠 Какие у тебя навыки или интересы? (через запятую)",
		TimePrompt:   "⏱ Сколько времени готов уделять в неделю?",
		TimeChoices:  []string{"3–5 часов/нед", "5–10 часов/нед", ">10 часов/нед"},
		Generating:   "⏳ Генерирую идеи... это может занять 10–20 секунд ⌛",
		ResultPrefix: "✅ Готово! Вот 3 идеи под твои условия:\n\n",
		ProOffer: "📩 Хочешь получить PRO-отчёт с подробным планом, инструментами и промптами? " +
			"Напиши свой e-mail одним сообщением или используй /pro",
		ProPitch:  "📩 PRO-отчёт: пришли e-mail одним сообщением, я занесу тебя в список и пришлю, когда будет готово.",
		ProThanks: "✅ Супер! Ты в списке ожидания PRO-версии 📬.",
		Cancelled:    "Окей, всё отменил. Нажми /start, когда захочешь начать заново.",
		NeedText:     "Мне нужен текст 🙂 Напиши ответ одним сообщением.",
		NeedStart:    "Нажми /start, чтобы запустить генератор, или /help",
		MoreUnavailable: "Пока нечего повторять — сначала пройди опрос через /start.",
		Privacy: "🔒 Приватность: я не храню твой ID в открытом виде, только необратимый хэш.\n" +
			"Записи старше %d дней удаляются автоматически.\n" +
			"Команда /erase удаляет все твои записи немедленно.",
		Terms: "📄 Сервис предоставляется как есть: идеи генерирует нейросеть, это не инвестиционный совет. " +
			"Используя бота, ты подтверждаешь согласие на обработку ответов в обезличенном виде.",
		About: "🤖 AI Idea Lab — генератор идей микробизнеса.\n" +
			"3 вопроса → 3 идеи под твой бюджет, навыки и время.",
		Help: "Я спрошу 💰 бюджет, 🧠 навыки и ⏱ доступное время, а затем предложу 3 идеи.\n" +
			"Команды: /start, /more, /pro, /cancel, /privacy, /terms, /erase, /about, /help",
		Erased:       "🗑 Удалено записей: %d",
		AdminCleared: "🧹 Таблица лидов очищена.",
		Apology:      "Что-то пошло не так 🙈 Попробуй ещё раз — твой прогресс не потерян.",
	}
}

// LoadTexts reads a YAML text pack and overlays it on the defaults;
// empty fields keep the default copy.
func LoadTexts(path string) (Texts, error) {
	texts := DefaultTexts()
	raw, err := os.ReadFile(path)
	if err != nil {
		return texts, fmt.Errorf("read text pack %s: %w", path, err)
	}
	var overlay Texts
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return texts, fmt.Errorf("parse text pack %s: %w", path, err)
	}
	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&texts.Welcome, overlay.Welcome)
	merge(&texts.ConsentDeclined, overlay.ConsentDeclined)
	merge(&texts.BudgetPrompt, overlay.BudgetPrompt)
	merge(&texts.BudgetRetry, overlay.BudgetRetry)
	merge(&texts.SkillsPrompt, overlay.SkillsPrompt)
	merge(&texts.TimePrompt, overlay.TimePrompt)
	if len(overlay.TimeChoices) > 0 {
		texts.TimeChoices = overlay.TimeChoices
	}
	merge(&texts.Generating, overlay.Generating)
	merge(&texts.ResultPrefix, overlay.ResultPrefix)
	merge(&texts.ProOffer, overlay.ProOffer)
	merge(&texts.ProPitch, overlay.ProPitch)
	merge(&texts.ProThanks, overlay.ProThanks)
	merge(&texts.Cancelled, overlay.Cancelled)
	merge(&texts.NeedText, overlay.NeedText)
	merge(&texts.NeedStart, overlay.NeedStart)
	merge(&texts.MoreUnavailable, overlay.MoreUnavailable)
	merge(&texts.Privacy, overlay.Privacy)
	merge(&texts.Terms, overlay.Terms)
	merge(&texts.About, overlay.About)
	merge(&texts.Help, overlay.Help)
	merge(&texts.Erased, overlay.Erased)
	merge(&texts.AdminCleared, overlay.AdminCleared)
	merge(&texts.Apology, overlay.Apology)
	return texts, nil
}
