package web

import (
	"context"
	"io"
	"strings"

	"geoquiz/internal/geo"

	"github.com/a-h/templ"
)

const homeScript = `
    <script>
      const byId = (id) => document.getElementById(id);

      async function postJSON(path, body) {
        const res = await fetch(path, {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body)
        });
        return { ok: res.ok, data: await res.json() };
      }

      byId("createForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const out = byId("createResult");
        out.textContent = "Creating game...";
        const rounds = parseInt(event.target.elements.rounds.value, 10) || 0;
        const { ok, data } = await postJSON("/api/games", rounds > 0 ? { rounds } : {});
        if (!ok) {
          out.textContent = data.error || "Could not create the game.";
          return;
        }
        sessionStorage.setItem("host_id:" + data.game_id, data.host_id);
        out.innerHTML = "";
        out.append("Share code " + data.code + " (" + data.rounds + " rounds). ");
        const link = document.createElement("a");
        link.href = "/games/" + data.game_id + "/results";
        link.textContent = "Standings";
        out.append(link);
      });

      byId("joinForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        const out = byId("joinResult");
        out.textContent = "Joining...";
        const form = event.target.elements;
        const { ok, data } = await postJSON("/api/join", {
          code: form.code.value.trim(),
          initials: form.initials.value.trim()
        });
        if (!ok) {
          out.textContent = data.error || "Could not join the game.";
          return;
        }
        sessionStorage.setItem("player_id:" + data.game_id, data.player_id);
        out.textContent = data.initials + " is in game " + data.code + ". Wait for the host to start.";
      });
    </script>
`

// Home renders the landing page with the create and join forms.
func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`      <header class="hero">
        <span class="tag">GeoQuiz</span>
        <h1>Find the landmark. Pin it closest.</h1>
        <p>Every round shows a place. Drop a pin where you think it is; the closer you land, the more you score.</p>
      </header>

      <section class="panel">
        <h2>Host</h2>
        <form id="createForm">
          <label>Rounds <input name="rounds" type="number" min="1" max="20" placeholder="5"/></label>
          <button type="submit" class="primary">Create game</button>
        </form>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <h2>Play</h2>
        <form id="joinForm">
          <input name="code" placeholder="Code" maxlength="6" autocomplete="off" required/>
          <input name="initials" placeholder="Initials" maxlength="3" autocomplete="off" required/>
          <button type="submit" class="secondary">Join</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>

      <section class="panel rules">
        <h2>Scoring</h2>
        <p>A pin right on target earns `)
		b.WriteString(itoa(geo.MaxScore))
		b.WriteString(` points. Every kilometre away cuts the score by about two thirds.</p>
      </section>
`)
		b.WriteString(homeScript)
		return writePage(w, "GeoQuiz", b.String())
	})
}
