package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tgadmin/internal/console"
	"tgadmin/internal/stories/broadcasts"
)

// adminctl — консольный аналог панели: логинится в админ-API и
// гоняет те же операции через console.Store.
func main() {
	baseURL := flag.String("url", "http://127.0.0.1:8080", "admin API base url")
	user := flag.String("user", "", "admin username")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(context.Background(), *baseURL, *user, *password, args[0], args[1:]); err != nil {
		if errors.Is(err, console.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "not authenticated: check -user and -password")
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: adminctl [-url URL] -user USER -password PASS <command> [options]

commands:
  state                         show the full panel state
  conversation -id N            show one conversation thread
  reply -id N -text TEXT        reply in a conversation
  tariff-save [options]         create or update a tariff
  tariff-delete -id N           delete a tariff
  button-save [options]         create or update a tariff button
  button-delete -id N           delete a button
  broadcast-save [options]      create or update a draft broadcast
  broadcast-send -id N          send a draft broadcast
  broadcast-edit -id N -body T  edit the text of a sent broadcast
  broadcast-delete -id N        delete a draft broadcast
  deliveries -id N              list deliveries of a broadcast
  promo-save [options]          create or update a promo code
  promo-delete -id N            delete a promo code`)
}

func run(ctx context.Context, baseURL, user, password, command string, args []string) error {
	client, err := console.NewClient(baseURL)
	if err != nil {
		return err
	}
	if err := client.Login(ctx, user, password); err != nil {
		return err
	}
	store := console.NewStore(client)

	switch command {
	case "state":
		return showState(ctx, store)
	case "conversation":
		return showConversation(ctx, store, args)
	case "reply":
		return sendReply(ctx, store, args)
	case "tariff-save":
		return saveTariff(ctx, store, args)
	case "tariff-delete":
		return deleteByID(ctx, args, store.DeleteTariff)
	case "button-save":
		return saveButton(ctx, store, args)
	case "button-delete":
		return deleteByID(ctx, args, store.DeleteButton)
	case "broadcast-save":
		return saveBroadcast(ctx, store, args)
	case "broadcast-send":
		return deleteByID(ctx, args, store.SendBroadcast)
	case "broadcast-edit":
		return editBroadcast(ctx, store, args)
	case "broadcast-delete":
		return deleteByID(ctx, args, store.DeleteBroadcast)
	case "deliveries":
		return showDeliveries(ctx, store, args)
	case "promo-save":
		return savePromo(ctx, store, args)
	case "promo-delete":
		return deleteByID(ctx, args, store.DeletePromo)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func showState(ctx context.Context, store *console.Store) error {
	if err := store.Reload(ctx, false); err != nil {
		return err
	}

	fmt.Println("== Tariffs ==")
	if len(store.Tariffs) == 0 {
		fmt.Println(console.Placeholder("tariffs"))
	}
	for i := range store.Tariffs {
		fmt.Println(console.TariffRow(&store.Tariffs[i], store.Tariffs[i].ID == store.SelectedTariffID))
	}

	fmt.Println("== Broadcasts ==")
	if len(store.Broadcasts) == 0 {
		fmt.Println(console.Placeholder("broadcasts"))
	}
	for i := range store.Broadcasts {
		fmt.Println(console.BroadcastRow(&store.Broadcasts[i], store.Broadcasts[i].ID == store.SelectedBroadcastID))
	}

	fmt.Println("== Promo codes ==")
	if len(store.PromoCodes) == 0 {
		fmt.Println(console.Placeholder("promos"))
	}
	for i := range store.PromoCodes {
		fmt.Println(console.PromoRow(&store.PromoCodes[i]))
	}

	fmt.Println("== Conversations ==")
	if len(store.Conversations) == 0 {
		fmt.Println(console.Placeholder("conversations"))
	}
	for i := range store.Conversations {
		fmt.Println(console.ConversationRow(&store.Conversations[i], store.Conversations[i].User.ID == store.ActiveConversationID))
	}

	return nil
}

func showConversation(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("conversation", flag.ContinueOnError)
	id := fs.Int64("id", 0, "conversation (user) id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := store.OpenConversation(ctx, *id); err != nil {
		return err
	}
	for i := range store.ActiveDetail.Messages {
		fmt.Println(console.MessageLine(&store.ActiveDetail.Messages[i]))
	}
	return nil
}

func sendReply(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("reply", flag.ContinueOnError)
	id := fs.Int64("id", 0, "conversation (user) id")
	text := fs.String("text", "", "reply text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := store.OpenConversation(ctx, *id); err != nil {
		return err
	}

	form := console.ReplyForm{}
	form.Reset(*id)
	form.Text = *text
	conversationID, body, err := form.Collect()
	if err != nil {
		return err
	}
	if err := store.Reply(ctx, conversationID, body); err != nil {
		return err
	}
	fmt.Println("reply sent")
	return nil
}

func saveTariff(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("tariff-save", flag.ContinueOnError)
	form := console.TariffForm{}
	form.Reset()
	fs.Int64Var(&form.ID, "id", 0, "tariff id (0 = create)")
	fs.StringVar(&form.Title, "title", "", "tariff title")
	fs.StringVar(&form.Description, "description", "", "tariff description")
	fs.StringVar(&form.Price, "price", "", "price, e.g. 19.99")
	fs.StringVar(&form.Currency, "currency", form.Currency, "currency code")
	fs.IntVar(&form.DurationDays, "days", 0, "duration in days (0 = unlimited)")
	fs.IntVar(&form.SortOrder, "sort", 0, "sort order")
	fs.BoolVar(&form.Active, "active", form.Active, "active flag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := form.Collect()
	if err != nil {
		return err
	}
	return store.SaveTariff(ctx, payload)
}

func saveButton(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("button-save", flag.ContinueOnError)
	form := console.ButtonForm{}
	fs.Int64Var(&form.ID, "id", 0, "button id (0 = create)")
	fs.Int64Var(&form.TariffID, "tariff", 0, "owning tariff id")
	fs.StringVar(&form.Label, "label", "", "button label")
	fs.StringVar(&form.Action, "action", "", "button action")
	fs.StringVar(&form.Payload, "payload", "", "button payload")
	fs.IntVar(&form.SortOrder, "sort", 0, "sort order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := form.Collect()
	if err != nil {
		return err
	}
	return store.SaveButton(ctx, payload)
}

func saveBroadcast(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("broadcast-save", flag.ContinueOnError)
	form := console.BroadcastForm{}
	form.Reset()
	var tariffIDs string
	fs.Int64Var(&form.ID, "id", 0, "broadcast id (0 = create)")
	fs.StringVar(&form.Title, "title", "", "broadcast title")
	fs.StringVar(&form.Body, "body", "", "broadcast text")
	fs.BoolVar(&form.Editable, "editable", false, "allow editing sent copies")
	fs.BoolVar(&form.AllUsers, "all", false, "target all users")
	fs.StringVar(&tariffIDs, "tariffs", "", "comma-separated tariff ids")
	fs.BoolVar(&form.IncludeNeverSubscribed, "never-subscribed", false, "include users who never paid")
	fs.BoolVar(&form.IncludeExpired, "expired", false, "include users with expired subscriptions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, raw := range strings.Split(tariffIDs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tariff id %q", raw)
		}
		form.TariffIDs[id] = true
	}

	payload, err := form.Collect()
	if err != nil {
		return err
	}
	return store.SaveBroadcast(ctx, payload)
}

func editBroadcast(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("broadcast-edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "broadcast id")
	body := fs.String("body", "", "new text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return store.EditBroadcastBody(ctx, &broadcasts.EditPayload{BroadcastID: *id, Body: *body})
}

func showDeliveries(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("deliveries", flag.ContinueOnError)
	id := fs.Int64("id", 0, "broadcast id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	deliveries, err := store.BroadcastDeliveries(ctx, *id)
	if err != nil {
		return err
	}
	for _, d := range deliveries {
		line := fmt.Sprintf("user %d — %s", d.UserID, d.Status)
		if d.ErrorMessage != "" {
			line += " (" + d.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func savePromo(ctx context.Context, store *console.Store, args []string) error {
	fs := flag.NewFlagSet("promo-save", flag.ContinueOnError)
	form := console.PromoForm{}
	form.Reset()
	fs.Int64Var(&form.ID, "id", 0, "promo id (0 = create)")
	fs.StringVar(&form.Code, "code", "", "promo code")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.IntVar(&form.DiscountPercent, "discount", 0, "discount percent")
	fs.IntVar(&form.FreeDays, "free-days", 0, "free days granted")
	fs.IntVar(&form.MaxUses, "max-uses", 0, "max uses (0 = unlimited)")
	fs.BoolVar(&form.Active, "active", form.Active, "active flag")
	fs.StringVar(&form.ExpiresAt, "expires", "", "expiry date YYYY-MM-DD (empty = never)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form.NoExpiry = strings.TrimSpace(form.ExpiresAt) == ""

	payload, err := form.Collect()
	if err != nil {
		return err
	}
	return store.SavePromo(ctx, payload)
}

func deleteByID(ctx context.Context, args []string, fn func(context.Context, int64) error) error {
	fs := flag.NewFlagSet("by-id", flag.ContinueOnError)
	id := fs.Int64("id", 0, "entity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("id is required")
	}
	return fn(ctx, *id)
}
