package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// CancelWord typed keyword that aborts the active flow.
const CancelWord = "отмена"

const (
	nameAskText     = "Введите *название* или отправьте *фото штрихкода*:"
	quantityAskText = "Укажите количество (например, '10 шт', '50 мл', '1 блистер'):"
	notesAskText    = "Добавьте примечания (дозировка, способ применения, '-' если нет):"
	expiryAskText   = "Укажите срок годности (ГГГГ-ММ-ДД) или выберите дату:"

	storageFailureText = "Произошла ошибка при работе с базой данных. Попробуйте позже."
	renderFailureText  = "⚠️ Не удалось обновить сообщение. Действие отменено, начните заново: /start"
)

// DialogueUseCase drives commands, typed input and button presses.
type DialogueUseCase interface {
	// Start answers /start with the welcome message and main menu
	Start(ctx context.Context, in entity.Incoming)

	// Help answers /help
	Help(ctx context.Context, in entity.Incoming)

	// List answers /list with the first page of medicines
	List(ctx context.Context, in entity.Incoming)

	// StartAdd answers /add by opening the add flow on a new message
	StartAdd(ctx context.Context, in entity.Incoming)

	// Cancel answers /cancel and the typed cancel keyword
	Cancel(ctx context.Context, in entity.Incoming)

	// HandleText feeds typed text to the active flow; false when there is none
	HandleText(ctx context.Context, in entity.Incoming) bool

	// HandlePhoto feeds a barcode photo to the add flow; false when not expected
	HandlePhoto(ctx context.Context, in entity.Incoming) bool

	// HandleCallback handles a button press and returns the notice to show
	HandleCallback(ctx context.Context, cb entity.CallbackQuery) entity.CallbackReply

	// Active reports the flow state of a user, "" when idle
	Active(userID int64) string
}

// DialogueConfig engine settings
type DialogueConfig struct {
	Location      *time.Location
	LookupTimeout time.Duration
	Now           func() time.Time
}

type dialogueUseCase struct {
	repo      repository.MedicineRepository
	gateway   repository.Gateway
	lookup    repository.BarcodeLookup
	presenter PresenterUseCase
	resolver  *Resolver
	convs     *conversationStore
	log       *slog.Logger

	loc           *time.Location
	lookupTimeout time.Duration
	now           func() time.Time
}

// NewDialogueUseCase creates a DialogueUseCase
func NewDialogueUseCase(
	repo repository.MedicineRepository,
	gateway repository.Gateway,
	lookup repository.BarcodeLookup,
	presenter PresenterUseCase,
	log *slog.Logger,
	cfg DialogueConfig,
) DialogueUseCase {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &dialogueUseCase{
		repo:          repo,
		gateway:       gateway,
		lookup:        lookup,
		presenter:     presenter,
		resolver:      NewResolver(gateway, log),
		convs:         newConversationStore(),
		log:           log.With("component", "dialogue"),
		loc:           cfg.Location,
		lookupTimeout: cfg.LookupTimeout,
		now:           cfg.Now,
	}
}

func (d *dialogueUseCase) today() time.Time {
	return entity.Today(d.now(), d.loc)
}

// Active reports the flow state of a user
func (d *dialogueUseCase) Active(userID int64) string {
	conv := d.convs.Get(userID)
	if conv == nil {
		return ""
	}
	switch f := conv.Flow.(type) {
	case *AddFlow:
		return "add:" + f.Step.String()
	case *EditFlow:
		return "edit:" + string(f.Field)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// Start welcome message and main menu
func (d *dialogueUseCase) Start(ctx context.Context, in entity.Incoming) {
	d.send(ctx, in.ChatID, WelcomeView())
}

// Help usage guide
func (d *dialogueUseCase) Help(ctx context.Context, in entity.Incoming) {
	d.send(ctx, in.ChatID, HelpView())
}

// List first page of medicines as a new message
func (d *dialogueUseCase) List(ctx context.Context, in entity.Incoming) {
	view, err := d.presenter.ListView(ctx, in.UserID, 1)
	if err != nil {
		d.log.ErrorContext(ctx, "list failed", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		view = entity.View{Text: storageFailureText}
	}
	d.send(ctx, in.ChatID, view)
}

// StartAdd opens the add flow on a new prompt message
func (d *dialogueUseCase) StartAdd(ctx context.Context, in entity.Incoming) {
	unlock := d.convs.Lock(in.UserID)
	defer unlock()

	id, err := d.gateway.Send(ctx, in.ChatID, promptView(addPromptText, cancelKeyboard()))
	if err != nil {
		d.log.ErrorContext(ctx, "failed to send add prompt", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		return
	}
	d.convs.Set(in.UserID, &Conversation{
		Flow:       &AddFlow{Step: StepName},
		Bound:      BoundIdentity{Prompt: id},
		PromptText: addPromptText,
	})
	d.log.InfoContext(ctx, "add flow started", slog.Int64("user_id", in.UserID))
}

// Cancel aborts the active flow from a command or the typed keyword
func (d *dialogueUseCase) Cancel(ctx context.Context, in entity.Incoming) {
	unlock := d.convs.Lock(in.UserID)
	defer unlock()

	d.cancel(ctx, in)
}

func (d *dialogueUseCase) cancel(ctx context.Context, in entity.Incoming) {
	conv := d.convs.Get(in.UserID)
	if conv == nil {
		d.send(ctx, in.ChatID, entity.View{Text: "Нет активного действия для отмены."})
		return
	}

	d.convs.Clear(in.UserID)
	d.log.InfoContext(ctx, "flow cancelled", slog.Int64("user_id", in.UserID))
	if in.MessageID != 0 {
		d.gateway.Delete(ctx, in.ChatID, in.MessageID)
	}

	target := conv.Bound.Target()
	if !target.IsZero() {
		if _, err := d.resolver.Render(ctx, target, MainMenuView()); err == nil {
			return
		}
	}
	menu := MainMenuView()
	menu.Text = "Действие отменено.\n\n" + menu.Text
	d.send(ctx, in.ChatID, menu)
}

// ---------------------------------------------------------------------------
// Typed input
// ---------------------------------------------------------------------------

// HandleText feeds typed text to the active flow
func (d *dialogueUseCase) HandleText(ctx context.Context, in entity.Incoming) bool {
	unlock := d.convs.Lock(in.UserID)
	defer unlock()

	conv := d.convs.Get(in.UserID)
	if conv != nil && !conv.Bound.AcceptsInputFrom(in.ChatID) {
		return false
	}

	if strings.EqualFold(strings.TrimSpace(in.Text), CancelWord) {
		d.cancel(ctx, in)
		return true
	}

	if conv == nil {
		return false
	}
	if in.MessageID != 0 {
		d.gateway.Delete(ctx, in.ChatID, in.MessageID)
	}

	text := strings.TrimSpace(in.Text)
	switch f := conv.Flow.(type) {
	case *AddFlow:
		d.addText(ctx, in.UserID, conv, f, text)
	case *EditFlow:
		d.editText(ctx, in.UserID, conv, f, text)
	}
	return true
}

func (d *dialogueUseCase) addText(ctx context.Context, userID int64, conv *Conversation, f *AddFlow, text string) {
	switch f.Step {
	case StepName:
		if text == "" {
			d.show(ctx, userID, conv, promptView("Название не может быть пустым.\n\n"+nameAskText, cancelKeyboard()))
			return
		}
		key := entity.NameKey(text)
		existing, err := d.repo.FindByNameKey(ctx, key, userID)
		switch {
		case err == nil:
			d.show(ctx, userID, conv, promptView(fmt.Sprintf("⚠️ Препарат '%s' уже есть в вашей аптечке.\n\nВведите другое название или отправьте фото штрихкода:",
				escapeMarkdown(existing.Name)), cancelKeyboard()))
			return
		case !errors.Is(err, repository.ErrNotFound):
			d.storageFailure(ctx, userID, conv, err)
			return
		}
		f.Draft.Name = text
		f.Draft.NameKey = key
		f.Step = StepQuantity
		d.show(ctx, userID, conv, promptView("Название принято.\n\n"+quantityAskText, cancelKeyboard()))

	case StepQuantity:
		if text == "" {
			d.show(ctx, userID, conv, promptView("Количество не может быть пустым.\n\n"+quantityAskText, cancelKeyboard()))
			return
		}
		f.Draft.Quantity = text
		f.Step = StepNotes
		d.show(ctx, userID, conv, promptView("Количество принято.\n\n"+notesAskText, cancelKeyboard()))

	case StepNotes:
		if text == "" {
			d.show(ctx, userID, conv, promptView("Заметки не могут быть пустыми. Введите хотя бы '-' или 'нет'.\n\n"+notesAskText, cancelKeyboard()))
			return
		}
		f.Draft.Notes = text
		f.Step = StepExpiry
		if d.show(ctx, userID, conv, promptView("Примечания добавлены.\n\n"+expiryAskText, d.calendarNow())) {
			conv.Bound.Calendar = conv.Bound.Prompt
		}

	case StepExpiry:
		date, problem := d.checkDate(text)
		if problem != "" {
			d.show(ctx, userID, conv, promptView("⚠️ "+problem+"\n\n"+expiryAskText, d.calendarNow()))
			return
		}
		d.commitAdd(ctx, userID, conv, f, date)
	}
}

func (d *dialogueUseCase) editText(ctx context.Context, userID int64, conv *Conversation, f *EditFlow, text string) {
	value := text
	var problem string

	switch f.Field {
	case entity.FieldName:
		if text == "" {
			problem = "Название не может быть пустым."
			break
		}
		existing, err := d.repo.FindByNameKey(ctx, entity.NameKey(text), userID)
		switch {
		case err == nil && existing.ID != f.TargetID:
			problem = fmt.Sprintf("Препарат '%s' уже есть в аптечке.", escapeMarkdown(existing.Name))
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			d.storageFailure(ctx, userID, conv, err)
			return
		}
	case entity.FieldQuantity:
		if text == "" {
			problem = "Количество не может быть пустым."
		}
	case entity.FieldNotes:
		if text == "" {
			problem = "Заметки не могут быть пустыми (введите '-')."
		}
	case entity.FieldExpDate:
		var date time.Time
		date, problem = d.checkDate(text)
		value = entity.FormatDate(date)
	}

	if problem != "" {
		view := d.editPrompt(f)
		view.Text = "⚠️ " + problem + "\nПопробуйте ввести значение еще раз или отмените действие.\n\n" + view.Text
		d.show(ctx, userID, conv, view)
		return
	}
	d.commitEdit(ctx, userID, conv, f, value)
}

// checkDate parses a typed expiry date and applies the not-in-the-past rule.
// problem is the user-facing reason when the date is rejected.
func (d *dialogueUseCase) checkDate(text string) (date time.Time, problem string) {
	date, err := entity.ParseDate(text, d.loc)
	if err != nil {
		return time.Time{}, "Неверный формат даты. Используйте ГГГГ-ММ-ДД."
	}
	if date.Before(d.today()) {
		return time.Time{}, "Срок годности не может быть в прошлом."
	}
	return date, ""
}

func (d *dialogueUseCase) calendarNow() entity.Keyboard {
	t := d.today()
	return CalendarKeyboard(t.Year(), int(t.Month()))
}

// ---------------------------------------------------------------------------
// Barcode photo
// ---------------------------------------------------------------------------

// HandlePhoto resolves a medicine name from a barcode photo
func (d *dialogueUseCase) HandlePhoto(ctx context.Context, in entity.Incoming) bool {
	unlock := d.convs.Lock(in.UserID)
	defer unlock()

	conv := d.convs.Get(in.UserID)
	if conv == nil || !conv.Bound.AcceptsInputFrom(in.ChatID) {
		return false
	}
	f, ok := conv.Flow.(*AddFlow)
	if !ok || f.Step != StepName || in.PhotoID == "" {
		return false
	}

	if !d.show(ctx, in.UserID, conv, promptView("📸 Получил фото, распознаю штрихкод...", cancelKeyboard())) {
		return true
	}

	lookupCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
	defer cancel()

	data, err := d.gateway.DownloadPhoto(lookupCtx, in.PhotoID)
	if err != nil {
		d.log.WarnContext(ctx, "photo download failed", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		d.show(ctx, in.UserID, conv, promptView("Не удалось загрузить фото. Попробуйте еще раз или введите название вручную.", cancelKeyboard()))
		return true
	}

	code, err := d.lookup.Decode(lookupCtx, data)
	if err != nil {
		d.log.InfoContext(ctx, "barcode not decoded", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		d.show(ctx, in.UserID, conv, promptView("Не удалось распознать штрихкод на фото. Попробуйте еще раз или введите название вручную.", cancelKeyboard()))
		return true
	}

	if !d.show(ctx, in.UserID, conv, promptView(fmt.Sprintf("🔍 Штрихкод: `%s`. Ищу на barcode-list.ru...", code), cancelKeyboard())) {
		return true
	}

	names, err := d.lookup.ResolveNames(lookupCtx, code)
	if err != nil {
		d.log.WarnContext(ctx, "barcode lookup failed", slog.String("code", code), slog.Any("error", err))
		d.show(ctx, in.UserID, conv, promptView(fmt.Sprintf("Не удалось получить инфо для `%s`. Введите название вручную:", code), cancelKeyboard()))
		return true
	}
	if len(names) == 0 {
		d.show(ctx, in.UserID, conv, promptView(fmt.Sprintf("Не найдено наименований для `%s`. Введите название вручную:", code), cancelKeyboard()))
		return true
	}

	name := ShortestName(names)
	key := entity.NameKey(name)
	existing, err := d.repo.FindByNameKey(ctx, key, in.UserID)
	switch {
	case err == nil:
		d.show(ctx, in.UserID, conv, entity.View{
			Text: fmt.Sprintf("⚠️ Лекарство «%s» уже есть в вашей аптечке.\n\nХотите обновить информацию о нем (например, количество)?",
				escapeMarkdown(existing.Name)),
			Markdown: true,
			Keyboard: entity.Keyboard{
				entity.Row(
					entity.Btn("🔄 Да, обновить", entity.BarcodeUpdate{ID: existing.ID}),
					entity.Btn("➕ Добавить другое", entity.BarcodeOther{}),
				),
				entity.Row(entity.Btn("❌ Отмена", entity.Cancel{})),
			},
		})
	case errors.Is(err, repository.ErrNotFound):
		f.Draft.Name = name
		f.Draft.NameKey = key
		f.Step = StepQuantity
		d.log.InfoContext(ctx, "name resolved by barcode", slog.Int64("user_id", in.UserID), slog.String("code", code), slog.String("name", name))
		d.show(ctx, in.UserID, conv, promptView(fmt.Sprintf("✅ Название по штрихкоду: %s\n\n%s", escapeMarkdown(name), quantityAskText), cancelKeyboard()))
	default:
		d.storageFailure(ctx, in.UserID, conv, err)
	}
	return true
}

// ShortestName picks the shortest candidate name; ties go to the
// lexicographically first one.
func ShortestName(names []string) string {
	best := ""
	bestLen := -1
	for _, n := range names {
		l := utf8.RuneCountInString(n)
		if bestLen < 0 || l < bestLen || (l == bestLen && n < best) {
			best, bestLen = n, l
		}
	}
	return best
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

func (d *dialogueUseCase) commitAdd(ctx context.Context, userID int64, conv *Conversation, f *AddFlow, date time.Time) {
	med := f.Draft
	med.Owner = userID
	med.ExpDate = entity.FormatDate(date)

	err := d.repo.Insert(ctx, &med)
	d.convs.Clear(userID)

	switch {
	case errors.Is(err, repository.ErrDuplicate):
		d.log.WarnContext(ctx, "duplicate on insert", slog.Int64("user_id", userID), slog.String("name", med.Name))
		d.finish(ctx, userID, conv, entity.View{
			Text:     fmt.Sprintf("Ошибка: Препарат с названием '%s' уже существует в вашей аптечке.", med.Name),
			Keyboard: mainMenuKeyboard(),
		})
	case err != nil:
		d.log.ErrorContext(ctx, "failed to insert medicine", slog.Int64("user_id", userID), slog.Any("error", err))
		d.finish(ctx, userID, conv, entity.View{
			Text:     "Произошла ошибка при сохранении данных. Попробуйте позже.",
			Keyboard: mainMenuKeyboard(),
		})
	default:
		d.log.InfoContext(ctx, "medicine added", slog.Int64("user_id", userID), slog.String("id", med.ID), slog.String("name", med.Name))
		view, err := d.presenter.ListView(ctx, userID, 1)
		if err != nil {
			d.log.ErrorContext(ctx, "list after insert failed", slog.Int64("user_id", userID), slog.Any("error", err))
			view = MainMenuView()
		}
		d.finish(ctx, userID, conv, view)
	}
}

func (d *dialogueUseCase) commitEdit(ctx context.Context, userID int64, conv *Conversation, f *EditFlow, value string) {
	changed, err := d.repo.UpdateFields(ctx, f.TargetID, userID, entity.UpdateFor(f.Field, value))
	d.convs.Clear(userID)

	logAttrs := []any{slog.Int64("user_id", userID), slog.String("id", f.TargetID), slog.String("field", string(f.Field))}
	notice := ""
	switch {
	case errors.Is(err, repository.ErrNotFound):
		d.log.WarnContext(ctx, "medicine to update not found", logAttrs...)
		notice = "Лекарство для обновления не найдено."
	case errors.Is(err, repository.ErrDuplicate):
		d.log.WarnContext(ctx, "duplicate on rename", logAttrs...)
		notice = fmt.Sprintf("⚠️ Препарат '%s' уже есть в аптечке.", escapeMarkdown(value))
	case err != nil:
		d.log.ErrorContext(ctx, "failed to update medicine", append(logAttrs, slog.Any("error", err))...)
		notice = "⚠️ Не удалось сохранить изменения. Попробуйте позже."
	case changed:
		d.log.InfoContext(ctx, "medicine updated", append(logAttrs, slog.String("was", f.Original))...)
	default:
		d.log.InfoContext(ctx, "medicine unchanged", logAttrs...)
	}

	target := conv.Bound.Target()
	d.finish(ctx, userID, conv, d.detailView(ctx, userID, f.TargetID, target.IsInline(), notice))
}

// detailView medicine card, or the not-found view, with an optional notice
// on top.
func (d *dialogueUseCase) detailView(ctx context.Context, userID int64, id string, inline bool, notice string) entity.View {
	view, err := d.presenter.DetailView(ctx, userID, id, inline)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			d.log.ErrorContext(ctx, "detail view failed", slog.Int64("user_id", userID), slog.String("id", id), slog.Any("error", err))
		}
		return NotFoundView(notice, inline)
	}
	if notice != "" {
		view.Text = notice + "\n\n" + view.Text
		view.Markdown = true
	}
	return view
}

// ---------------------------------------------------------------------------
// Buttons
// ---------------------------------------------------------------------------

// HandleCallback handles a button press
func (d *dialogueUseCase) HandleCallback(ctx context.Context, cb entity.CallbackQuery) entity.CallbackReply {
	unlock := d.convs.Lock(cb.UserID)
	defer unlock()

	switch a := cb.Action.(type) {
	case entity.Ignore:
		return entity.CallbackReply{}

	case entity.ShowMenu:
		d.renderAt(ctx, cb.Origin, MainMenuView())
		return entity.CallbackReply{}

	case entity.ShowList:
		if cb.Origin.IsInline() {
			return alert("Действие недоступно для этого сообщения.")
		}
		view, err := d.presenter.ListView(ctx, cb.UserID, a.Page)
		if err != nil {
			d.log.ErrorContext(ctx, "list failed", slog.Int64("user_id", cb.UserID), slog.Any("error", err))
			return alert(storageFailureText)
		}
		d.renderAt(ctx, cb.Origin, view)
		return entity.CallbackReply{}

	case entity.StartAdd:
		return d.startAddAt(ctx, cb)

	case entity.ViewMedicine:
		d.renderAt(ctx, cb.Origin, d.detailView(ctx, cb.UserID, a.ID, cb.Origin.IsInline(), ""))
		return entity.CallbackReply{}

	case entity.EditField:
		return d.startEdit(ctx, cb, a)

	case entity.AskDelete:
		med, err := d.repo.FindByID(ctx, a.ID, cb.UserID)
		if err != nil {
			return alert("Не удалось найти лекарство для удаления.")
		}
		d.renderAt(ctx, cb.Origin, DeleteConfirmView(med))
		return entity.CallbackReply{}

	case entity.ConfirmDelete:
		return d.confirmDelete(ctx, cb, a)

	case entity.HideInline:
		if !cb.Origin.IsInline() {
			return alert("Это действие доступно только для сообщений из поиска.")
		}
		if _, err := d.resolver.Render(ctx, cb.Origin, entity.View{Text: "⚠️"}); err != nil {
			return alert("Не удалось скрыть информацию.")
		}
		return entity.CallbackReply{Text: "Информация скрыта."}

	case entity.Cancel:
		return d.cancelAt(ctx, cb)

	case entity.BarcodeUpdate:
		conv := d.convs.Get(cb.UserID)
		if !awaitingName(conv) {
			return alert("Действие устарело.")
		}
		d.convs.Clear(cb.UserID)
		d.finish(ctx, cb.UserID, conv, d.detailView(ctx, cb.UserID, a.ID, false, ""))
		return entity.CallbackReply{}

	case entity.BarcodeOther:
		conv := d.convs.Get(cb.UserID)
		if !awaitingName(conv) {
			return alert("Действие устарело.")
		}
		d.show(ctx, cb.UserID, conv, promptView("➕ Хорошо, добавьте другое лекарство.\n\nВведите *точное название* или отправьте *фотографию штрихкода*:", cancelKeyboard()))
		return entity.CallbackReply{Text: "Введите другое название."}

	case entity.CalendarNav:
		return d.navigateCalendar(ctx, cb, a)

	case entity.CalendarDay:
		return d.selectDay(ctx, cb, a)

	default:
		d.log.WarnContext(ctx, "unhandled action", slog.String("action", fmt.Sprintf("%T", a)))
		return entity.CallbackReply{}
	}
}

func alert(text string) entity.CallbackReply {
	return entity.CallbackReply{Text: text, Alert: true}
}

func awaitingName(conv *Conversation) bool {
	if conv == nil {
		return false
	}
	f, ok := conv.Flow.(*AddFlow)
	return ok && f.Step == StepName
}

func (d *dialogueUseCase) startAddAt(ctx context.Context, cb entity.CallbackQuery) entity.CallbackReply {
	if cb.Origin.IsInline() {
		return alert("Добавить лекарство можно только в личной переписке с ботом.")
	}
	conv := &Conversation{
		Flow:  &AddFlow{Step: StepName},
		Bound: BoundIdentity{Prompt: cb.Origin},
	}
	d.convs.Set(cb.UserID, conv)
	if !d.show(ctx, cb.UserID, conv, promptView(addPromptText, cancelKeyboard())) {
		return alert("Не удалось начать добавление.")
	}
	d.log.InfoContext(ctx, "add flow started", slog.Int64("user_id", cb.UserID))
	return entity.CallbackReply{Text: "Начинаем добавление..."}
}

func (d *dialogueUseCase) startEdit(ctx context.Context, cb entity.CallbackQuery, a entity.EditField) entity.CallbackReply {
	if !a.Field.Valid() {
		return alert("Ошибка данных!")
	}
	med, err := d.repo.FindByID(ctx, a.ID, cb.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			d.log.ErrorContext(ctx, "edit lookup failed", slog.Int64("user_id", cb.UserID), slog.Any("error", err))
		}
		return alert("Не удалось найти лекарство!")
	}

	f := &EditFlow{TargetID: med.ID, Field: a.Field, Original: med.Name}
	conv := &Conversation{Flow: f}
	if cb.Origin.IsInline() {
		conv.Bound.Inline = cb.Origin
	} else {
		conv.Bound.Prompt = cb.Origin
	}
	if a.Field == entity.FieldExpDate {
		conv.Bound.Calendar = cb.Origin
	}

	d.convs.Set(cb.UserID, conv)
	if !d.show(ctx, cb.UserID, conv, d.editPrompt(f)) {
		return alert("Не удалось начать редактирование.")
	}
	d.log.InfoContext(ctx, "edit flow started", slog.Int64("user_id", cb.UserID), slog.String("id", med.ID), slog.String("field", string(a.Field)))
	return entity.CallbackReply{Text: "Введите новое значение..."}
}

func (d *dialogueUseCase) editPrompt(f *EditFlow) entity.View {
	name := escapeMarkdown(f.Original)
	if f.Field == entity.FieldExpDate {
		return promptView(fmt.Sprintf("✏️ Редактирование '%s'.\n\n%s", name, expiryAskText), d.calendarNow())
	}
	return promptView(fmt.Sprintf("✏️ Редактирование '%s'.\n\nВведите новое значение для поля '%s':", name, f.Field.Label()), cancelKeyboard())
}

func (d *dialogueUseCase) confirmDelete(ctx context.Context, cb entity.CallbackQuery, a entity.ConfirmDelete) entity.CallbackReply {
	err := d.repo.Delete(ctx, a.ID, cb.UserID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		d.renderAt(ctx, cb.Origin, NotFoundView("", cb.Origin.IsInline()))
		return alert("Не удалось удалить. Препарат не найден.")
	case err != nil:
		d.log.ErrorContext(ctx, "delete failed", slog.Int64("user_id", cb.UserID), slog.String("id", a.ID), slog.Any("error", err))
		return alert("Не удалось удалить препарат. Попробуйте позже.")
	}

	d.log.InfoContext(ctx, "medicine deleted", slog.Int64("user_id", cb.UserID), slog.String("id", a.ID))
	if cb.Origin.IsInline() {
		d.renderAt(ctx, cb.Origin, entity.View{Text: "🗑️"})
	} else {
		view, err := d.presenter.ListView(ctx, cb.UserID, 1)
		if err != nil {
			view = MainMenuView()
		}
		d.renderAt(ctx, cb.Origin, view)
	}
	return entity.CallbackReply{Text: "Препарат удален."}
}

func (d *dialogueUseCase) cancelAt(ctx context.Context, cb entity.CallbackQuery) entity.CallbackReply {
	conv := d.convs.Get(cb.UserID)
	target := cb.Origin
	if conv != nil {
		d.convs.Clear(cb.UserID)
		d.log.InfoContext(ctx, "flow cancelled", slog.Int64("user_id", cb.UserID))
		if t := conv.Bound.Target(); !t.IsZero() {
			target = t
		}
	}
	d.renderAt(ctx, target, MainMenuView())
	return entity.CallbackReply{Text: "Действие отменено."}
}

func (d *dialogueUseCase) navigateCalendar(ctx context.Context, cb entity.CallbackQuery, a entity.CalendarNav) entity.CallbackReply {
	year, month, ok := NavigateCalendar(a, d.today())
	if !ok {
		return alert("Доступны только ближайшие годы.")
	}

	text := "Выберите дату:"
	conv := d.convs.Get(cb.UserID)
	if conv != nil && conv.PromptText != "" {
		text = conv.PromptText
	}

	fresh, err := d.resolver.Render(ctx, cb.Origin, promptView(text, CalendarKeyboard(year, month)))
	if err != nil {
		return alert("Ошибка обновления календаря.")
	}
	if conv != nil {
		conv.Bound.Rebind(cb.Origin, fresh)
	}
	return entity.CallbackReply{Text: "Календарь: " + MonthTitle(year, month)}
}

func (d *dialogueUseCase) selectDay(ctx context.Context, cb entity.CallbackQuery, a entity.CalendarDay) entity.CallbackReply {
	date, ok := SelectedDate(a, d.loc)
	if !ok {
		return alert("Ошибка даты.")
	}
	if date.Before(d.today()) {
		return alert("Срок в прошлом.")
	}
	reply := entity.CallbackReply{Text: "Выбрана дата: " + entity.FormatDate(date)}

	conv := d.convs.Get(cb.UserID)
	if conv != nil {
		switch f := conv.Flow.(type) {
		case *AddFlow:
			if f.Step == StepExpiry {
				d.commitAdd(ctx, cb.UserID, conv, f, date)
				return reply
			}
		case *EditFlow:
			if f.Field == entity.FieldExpDate {
				d.commitEdit(ctx, cb.UserID, conv, f, entity.FormatDate(date))
				return reply
			}
		}
		return alert("Сейчас дата не ожидается.")
	}

	d.log.WarnContext(ctx, "calendar day outside of a date prompt", slog.Int64("user_id", cb.UserID))
	d.renderAt(ctx, cb.Origin, MainMenuView())
	return alert("Действие устарело.")
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// show renders view at the conversation's target and rebinds it when a new
// message had to be sent. On failure the conversation is dropped and the
// user is told to start over.
func (d *dialogueUseCase) show(ctx context.Context, userID int64, conv *Conversation, view entity.View) bool {
	target := conv.Bound.Target()
	fresh, err := d.resolver.Render(ctx, target, view)
	if err != nil {
		d.convs.Clear(userID)
		d.notifyFailure(ctx, userID, target)
		return false
	}
	conv.Bound.Rebind(target, fresh)
	conv.PromptText = view.Text
	return true
}

// finish renders the closing view of a conversation that was already cleared.
func (d *dialogueUseCase) finish(ctx context.Context, userID int64, conv *Conversation, view entity.View) {
	target := conv.Bound.Target()
	if _, err := d.resolver.Render(ctx, target, view); err != nil {
		d.notifyFailure(ctx, userID, target)
	}
}

func (d *dialogueUseCase) storageFailure(ctx context.Context, userID int64, conv *Conversation, err error) {
	d.log.ErrorContext(ctx, "storage failure", slog.Int64("user_id", userID), slog.Any("error", err))
	d.convs.Clear(userID)
	d.finish(ctx, userID, conv, entity.View{Text: storageFailureText, Keyboard: mainMenuKeyboard()})
}

func (d *dialogueUseCase) notifyFailure(ctx context.Context, userID int64, target entity.MessageIdentity) {
	chatID := userID
	if !target.IsInline() && target.ChatID != 0 {
		chatID = target.ChatID
	}
	d.send(ctx, chatID, entity.View{Text: renderFailureText})
}

func (d *dialogueUseCase) renderAt(ctx context.Context, id entity.MessageIdentity, view entity.View) {
	if _, err := d.resolver.Render(ctx, id, view); err != nil {
		d.log.WarnContext(ctx, "render failed", slog.String("message", id.String()), slog.Any("error", err))
	}
}

func (d *dialogueUseCase) send(ctx context.Context, chatID int64, view entity.View) {
	if _, err := d.gateway.Send(ctx, chatID, view); err != nil {
		d.log.ErrorContext(ctx, "send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
