package usecase

import (
	"fmt"
	"strings"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// PageSize medicines per list page.
const PageSize = 5

const (
	welcomeText = "👋 Привет! Я бот для учета лекарств в домашней аптечке.\n\n" +
		"Я помогу тебе вести список лекарств, отслеживать сроки годности и быстро находить нужные препараты.\n\n" +
		"Используй кнопки ниже для навигации или команду /help для получения инструкции."

	helpText = `📖 *Как пользоваться ботом "Домашняя аптечка"*

1️⃣ *Добавить лекарство*
Нажмите "➕ Добавить лекарство" или введите команду /add.
Можно написать название или отправить фото штрихкода.
Бот попросит указать количество, примечания и срок годности.

2️⃣ *Посмотреть список*
Нажмите "💊 Список лекарств" или введите команду /list.

3️⃣ *Изменить или удалить*
Откройте лекарство в списке: можно изменить любое поле или удалить его.

4️⃣ *Поиск через @*
В любом чате напишите @имя\_бота и часть названия, например ` + "`аспирин` или `aspirin`" + `.

5️⃣ *Импорт и экспорт*
Отправьте файл .xlsx (название, количество, примечания, срок) для импорта, /export для выгрузки.

6️⃣ *Отмена действия*
Нажмите "❌ Отмена", введите "отмена" или команду /cancel.

📅 *Напоминания*
Каждый день бот присылает список лекарств, срок которых скоро истекает или уже истек.`

	menuText = "🏠 Домашняя аптечка\n\nУправляйте списком ваших лекарств или воспользуйтесь поиском."

	addPromptText = "➕ Добавление нового препарата.\n\nВведите *точное название* или отправьте *фотографию штрихкода*:"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user text for legacy Markdown. Escapes are only
// honoured outside entities, so escaped text must never sit inside *...*.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func cancelKeyboard() entity.Keyboard {
	return entity.Keyboard{entity.Row(entity.Btn("❌ Отмена", entity.Cancel{}))}
}

func mainMenuKeyboard() entity.Keyboard {
	search := " "
	return entity.Keyboard{
		entity.Row(entity.Btn("💊 Список лекарств", entity.ShowList{Page: 1})),
		entity.Row(entity.Btn("➕ Добавить лекарство", entity.StartAdd{})),
		entity.Row(entity.Button{Text: "🔍 Начать поиск", SwitchInline: &search}),
	}
}

// MainMenuView main menu
func MainMenuView() entity.View {
	return entity.View{Text: menuText, Keyboard: mainMenuKeyboard()}
}

// WelcomeView answer to /start
func WelcomeView() entity.View {
	return entity.View{Text: welcomeText, Keyboard: mainMenuKeyboard()}
}

// HelpView answer to /help
func HelpView() entity.View {
	return entity.View{Text: helpText, Markdown: true}
}

// Paginate clamps page into range and returns that page's items together with
// the clamped page and the page count.
func Paginate(meds []entity.Medicine, page int) (items []entity.Medicine, current, pages int) {
	pages = (len(meds) + PageSize - 1) / PageSize
	current = page
	if current > pages {
		current = pages
	}
	if current < 1 {
		current = 1
	}
	start := (current - 1) * PageSize
	if start >= len(meds) {
		return nil, current, pages
	}
	end := start + PageSize
	if end > len(meds) {
		end = len(meds)
	}
	return meds[start:end], current, pages
}

// ListView one page of the user's medicines
func ListView(meds []entity.Medicine, page int) entity.View {
	items, current, pages := Paginate(meds, page)

	text := "Список лекарств пуст."
	if len(meds) > 0 {
		text = "Ваши лекарства:"
	}
	if pages > 1 {
		text = fmt.Sprintf("Ваши лекарства (Страница %d/%d):", current, pages)
	}

	var kb entity.Keyboard
	for _, med := range items {
		label := fmt.Sprintf("%s (%s) | Срок: %s", med.Name, med.Quantity, med.ExpDate)
		kb = append(kb, entity.Row(entity.Btn(label, entity.ViewMedicine{ID: med.ID})))
	}
	if len(items) == 0 && len(meds) > 0 {
		kb = append(kb, entity.Row(entity.Btn("Список пуст на этой странице", entity.Ignore{})))
	}

	if pages > 1 {
		var pager []entity.Button
		if current > 1 {
			pager = append(pager, entity.Btn("◀️ Пред.", entity.ShowList{Page: current - 1}))
		}
		pager = append(pager, entity.Btn(fmt.Sprintf("📄 %d/%d", current, pages), entity.Ignore{}))
		if current < pages {
			pager = append(pager, entity.Btn("След. ▶️", entity.ShowList{Page: current + 1}))
		}
		kb = append(kb, pager)
	}

	kb = append(kb,
		entity.Row(entity.Btn("➕ Добавить лекарство", entity.StartAdd{})),
		entity.Row(entity.Btn("🏠 Главное меню", entity.ShowMenu{})),
	)
	return entity.View{Text: text, Keyboard: kb}
}

// DetailView a medicine card with edit/delete controls. Inline messages get a
// "hide" button instead of "back to list".
func DetailView(med *entity.Medicine, inline bool) entity.View {
	text := fmt.Sprintf("*Препарат:* %s\n\n*Количество:* %s\n*Примечания:* %s\nСрок годности: `%s`",
		escapeMarkdown(med.Name), escapeMarkdown(med.Quantity), escapeMarkdown(med.Notes), med.ExpDate)

	kb := entity.Keyboard{
		entity.Row(entity.Btn("✏️ Изменить Название", entity.EditField{ID: med.ID, Field: entity.FieldName})),
		entity.Row(entity.Btn("✏️ Изменить Количество", entity.EditField{ID: med.ID, Field: entity.FieldQuantity})),
		entity.Row(entity.Btn("✏️ Изменить Заметки", entity.EditField{ID: med.ID, Field: entity.FieldNotes})),
		entity.Row(entity.Btn("✏️ Изменить Срок годности", entity.EditField{ID: med.ID, Field: entity.FieldExpDate})),
		entity.Row(entity.Btn("🗑️ Удалить лекарство", entity.AskDelete{ID: med.ID})),
	}
	if inline {
		kb = append(kb, entity.Row(entity.Btn("☑️ Скрыть информацию", entity.HideInline{})))
	} else {
		kb = append(kb, entity.Row(entity.Btn("⬅️ Назад к списку", entity.ShowList{Page: 1})))
	}
	return entity.View{Text: text, Markdown: true, Keyboard: kb}
}

// NotFoundView shown when a medicine disappeared
func NotFoundView(notice string, inline bool) entity.View {
	text := "Не удалось найти информацию о лекарстве."
	if notice != "" {
		text = notice + "\n\n" + text
	}
	back := entity.Btn("⬅️ Назад к списку", entity.ShowList{Page: 1})
	if inline {
		back = entity.Btn("🏠 Главное меню", entity.ShowMenu{})
	}
	return entity.View{Text: text, Keyboard: entity.Keyboard{entity.Row(back)}}
}

// DeleteConfirmView asks to confirm deletion
func DeleteConfirmView(med *entity.Medicine) entity.View {
	return entity.View{
		Text:     fmt.Sprintf("🗑️ Вы уверены, что хотите удалить препарат «%s»?", escapeMarkdown(med.Name)),
		Markdown: true,
		Keyboard: entity.Keyboard{entity.Row(
			entity.Btn("✅ Да, удалить", entity.ConfirmDelete{ID: med.ID}),
			entity.Btn("❌ Отмена", entity.ViewMedicine{ID: med.ID}),
		)},
	}
}

// InlineCardView message posted when an inline search result is chosen
func InlineCardView(med *entity.Medicine) entity.View {
	return entity.View{
		Text: fmt.Sprintf("💊 %s\n\n▫️ Количество: %s\n▫️ Срок годности: `%s`\n📝 Примечания: %s",
			escapeMarkdown(med.Name), escapeMarkdown(med.Quantity), med.ExpDate, escapeMarkdown(med.Notes)),
		Markdown: true,
		Keyboard: entity.Keyboard{entity.Row(entity.Btn("✏️ Посмотреть / Изменить", entity.ViewMedicine{ID: med.ID}))},
	}
}

func promptView(text string, kb entity.Keyboard) entity.View {
	return entity.View{Text: text, Markdown: true, Keyboard: kb}
}
