package site

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/2beens/portfoliocms/internal/content"
	"github.com/2beens/portfoliocms/internal/seo"
)

type adminData struct {
	Posts []*content.Post
	Stats content.Stats
}

type editorData struct {
	IsNew      bool
	Post       *content.Post
	Session    *content.EditSession
	Categories []string
}

type loginData struct {
	RedirectedFrom string
	Error          string
	Message        string
}

type resetPasswordData struct {
	Error     string
	MinLength int
}

const adminScript = `<script>
document.querySelectorAll("[data-delete]").forEach(function (btn) {
  btn.addEventListener("click", async function () {
    if (!confirm("Are you sure you want to delete this post?")) return;
    var id = btn.getAttribute("data-delete");
    var res = await fetch("/api/admin/posts/" + id, {method: "DELETE", credentials: "same-origin"});
    if (res.ok) { document.getElementById("post-" + id).remove(); } else { alert(await res.text()); }
  });
});
</script>
`

// editorScript sends preview transitions one at a time, each built on the session the
// previous response returned. Only the newest response updates the form, and the slug
// input is left alone while it has focus.
const editorScript = `<script>
(function () {
  var form = document.getElementById("editor");
  var session = {title: form.title.value, slug: form.slug.value, content: form.content.value,
    slugIsAutoDerived: form.dataset.auto === "true"};
  var queue = Promise.resolve();
  var latest = 0;
  function preview(field, value) {
    var seq = ++latest;
    queue = queue.then(function () { return send(seq, field, value); }).catch(function () {});
  }
  async function send(seq, field, value) {
    var res = await fetch("/api/admin/editor/preview", {method: "POST", credentials: "same-origin",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({session: session, field: field, value: value})});
    if (!res.ok) return;
    session = await res.json();
    if (seq !== latest) return;
    if (document.activeElement !== form.slug) form.slug.value = session.slug;
    document.getElementById("reading-time").textContent =
      session.readingTime.text + " (" + session.readingTime.words + " words)";
  }
  form.title.addEventListener("input", function () { preview("title", form.title.value); });
  form.slug.addEventListener("input", function () { preview("slug", form.slug.value); });
  form.content.addEventListener("input", function () { preview("content", form.content.value); });
  document.getElementById("reset-slug").addEventListener("click", function () { preview("reset-slug", ""); });
  document.getElementById("image-file").addEventListener("change", async function (e) {
    var data = new FormData();
    data.append("file", e.target.files[0]);
    var res = await fetch("/api/admin/images", {method: "POST", body: data, credentials: "same-origin"});
    if (res.ok) { form.image_url.value = (await res.json()).url; } else { alert(await res.text()); }
  });
  form.addEventListener("submit", async function (e) {
    e.preventDefault();
    await queue;
    var id = form.dataset.id;
    var body = {title: form.title.value, slug: form.slug.value, excerpt: form.excerpt.value,
      content: form.content.value, category: form.category.value, tags: form.tags.value,
      date: form.date.value, image_url: form.image_url.value,
      published: e.submitter && e.submitter.value === "publish"};
    var res = await fetch(id ? "/api/admin/posts/" + id : "/api/admin/posts", {
      method: id ? "PUT" : "POST", credentials: "same-origin",
      headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
    if (res.ok) { window.location = "/admin"; return; }
    var errorEl = document.getElementById("error");
    errorEl.textContent = await res.text();
    errorEl.hidden = false;
  });
})();
</script>
`

func adminPage(site seo.Site, data adminData) pageView {
	return pageView{
		Title: "Admin | " + site.Name,
		Admin: true,
		Body: templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			hw.raw("<h1>Blog Admin</h1>\n<p class=\"stats\">Total: ", strconv.Itoa(data.Stats.Total),
				" &middot; Published: ", strconv.Itoa(data.Stats.Published),
				" &middot; Drafts: ", strconv.Itoa(data.Stats.Drafts), "</p>\n")
			hw.raw("<p><a href=\"/admin/new\">New post</a></p>\n")
			hw.raw("<form method=\"post\" action=\"/api/auth/sign-out\"><button type=\"submit\">Sign out</button></form>\n")
			hw.raw("<table>\n<thead><tr><th>Title</th><th>Status</th><th>Date</th><th></th></tr></thead>\n<tbody>\n")
			if len(data.Posts) == 0 {
				hw.raw("<tr><td colspan=\"4\">No posts yet.</td></tr>\n")
			}
			for _, p := range data.Posts {
				hw.component(ctx, adminRow(p))
			}
			hw.raw("</tbody>\n</table>\n", adminScript)
			return hw.err
		}),
	}
}

func adminRow(p *content.Post) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := newHTMLWriter(w)
		status := "Draft"
		if p.Published {
			status = "Published"
		}
		hw.raw("<tr", attr("id", "post-"+p.ID), ">\n<td>")
		hw.text(p.Title)
		hw.raw("</td>\n<td>", status, "</td>\n<td>")
		hw.text(p.Date)
		hw.raw("</td>\n<td><a", urlAttr("href", "/admin/edit/"+p.ID), ">Edit</a> ")
		if p.Published {
			hw.raw("<a", urlAttr("href", "/blog/"+p.EffectiveSlug()), ">View</a>")
		}
		hw.raw("\n<button", attr("data-delete", p.ID), ">Delete</button></td>\n</tr>\n")
		return hw.err
	})
}

func editorPage(site seo.Site, data editorData) pageView {
	heading := "Edit Post"
	if data.IsNew {
		heading = "New Post"
	}
	return pageView{
		Title: heading + " | " + site.Name,
		Admin: true,
		Body: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			post := data.Post
			hw := newHTMLWriter(w)
			hw.raw("<h1>", heading, "</h1>\n<p id=\"error\" class=\"error\" hidden></p>\n")
			hw.raw("<form id=\"editor\"", attr("data-id", post.ID),
				attr("data-auto", strconv.FormatBool(data.Session.SlugIsAutoDerived)), ">\n")
			hw.raw("<label>Title <input name=\"title\"", attr("value", post.Title), " required></label>\n")
			hw.raw("<label>Slug <input name=\"slug\"", attr("value", post.Slug), " required></label>\n")
			hw.raw("<button type=\"button\" id=\"reset-slug\">Generate from title</button>\n")
			hw.raw("<label>Excerpt <textarea name=\"excerpt\" required>")
			hw.text(post.Excerpt)
			hw.raw("</textarea></label>\n")

			hw.raw("<label>Category <select name=\"category\">")
			for _, c := range data.Categories {
				if c == post.Category {
					hw.raw("<option selected>")
				} else {
					hw.raw("<option>")
				}
				hw.text(c)
				hw.raw("</option>")
			}
			hw.raw("</select></label>\n")

			hw.raw("<label>Tags <input name=\"tags\"", attr("value", joinTags(post.Tags)), " placeholder=\"comma, separated\"></label>\n")
			hw.raw("<label>Date <input name=\"date\" type=\"date\"", attr("value", post.Date), "></label>\n")
			hw.raw("<label>Image URL <input name=\"image_url\"", attr("value", post.ImageURL), "></label>\n")
			hw.raw("<label>Upload image <input id=\"image-file\" type=\"file\" accept=\"image/*\"></label>\n")
			hw.raw("<label>Content (Markdown) <textarea name=\"content\" rows=\"20\" required>")
			hw.text(post.Content)
			hw.raw("</textarea></label>\n")
			hw.raw("<p id=\"reading-time\">")
			hw.text(data.Session.ReadingTime.Text)
			hw.raw(" (", strconv.Itoa(data.Session.ReadingTime.Words), " words)</p>\n")

			publishLabel := "Publish"
			if post.Published {
				publishLabel = "Update"
			}
			hw.raw("<button type=\"submit\" name=\"action\" value=\"draft\">Save Draft</button>\n")
			hw.raw("<button type=\"submit\" name=\"action\" value=\"publish\">", publishLabel, "</button>\n</form>\n")
			hw.raw(editorScript)
			return hw.err
		}),
	}
}

func loginPage(site seo.Site, data loginData) pageView {
	return pageView{
		Title: "Sign in | " + site.Name,
		Body: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			hw.raw("<h1>Admin Login</h1>\n")
			if data.Error != "" {
				hw.raw("<p class=\"error\">")
				hw.text(data.Error)
				hw.raw("</p>\n")
			}
			if data.Message != "" {
				hw.raw("<p class=\"message\">")
				hw.text(data.Message)
				hw.raw("</p>\n")
			}
			hw.raw("<form method=\"post\" action=\"/api/auth/sign-in\">\n")
			hw.raw("<input type=\"hidden\" name=\"redirectedFrom\"", attr("value", data.RedirectedFrom), ">\n")
			hw.raw("<label>Email <input name=\"email\" type=\"email\" required></label>\n")
			hw.raw("<label>Password <input name=\"password\" type=\"password\" required></label>\n")
			hw.raw("<button type=\"submit\">Sign in</button>\n</form>\n")
			hw.raw("<h2>Forgot your password?</h2>\n<form method=\"post\" action=\"/api/auth/reset-password\">\n")
			hw.raw("<label>Email <input name=\"email\" type=\"email\" required></label>\n")
			hw.raw("<button type=\"submit\">Send reset link</button>\n</form>\n")
			return hw.err
		}),
	}
}

func resetPasswordPage(site seo.Site, data resetPasswordData) pageView {
	return pageView{
		Title: "Reset password | " + site.Name,
		Body: templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			hw := newHTMLWriter(w)
			minLength := attr("minlength", strconv.Itoa(data.MinLength))
			hw.raw("<h1>Set a new password</h1>\n")
			if data.Error != "" {
				hw.raw("<p class=\"error\">")
				hw.text(data.Error)
				hw.raw("</p>\n")
			}
			hw.raw("<form method=\"post\" action=\"/api/auth/update-password\">\n")
			hw.raw("<label>New password <input name=\"password\" type=\"password\"", minLength, " required></label>\n")
			hw.raw("<label>Confirm password <input name=\"confirm\" type=\"password\"", minLength, " required></label>\n")
			hw.raw("<button type=\"submit\">Update password</button>\n</form>\n")
			return hw.err
		}),
	}
}
