package sqlinline

const QCreateOrdersTable = `--sql 3f0b6c1e-8a52-4c7e-9d4f-6b2e1a7c9d35
create table if not exists orders (
  payment_intent_id text primary key,
  email text not null default '',
  amount_cents bigint not null default 0,
  currency text not null default 'usd',
  photo_count int not null default 0,
  services jsonb not null default '[]'::jsonb,
  outcome text not null default 'pending',
  download_links jsonb not null default '[]'::jsonb,
  email_id text not null default '',
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

const QUpsertOrderIntent = `--sql 8d21e4a7-0c3b-4f6e-a915-27c4d8b0e6f2
insert into orders(payment_intent_id, email, amount_cents, currency, photo_count, services, created_at, updated_at)
values ($1::text, $2::text, $3::bigint, $4::text, $5::int, coalesce($6::jsonb, '[]'::jsonb), now(), now())
on conflict (payment_intent_id) do update
set email = excluded.email,
    amount_cents = excluded.amount_cents,
    currency = excluded.currency,
    photo_count = excluded.photo_count,
    services = excluded.services,
    updated_at = now();
`

const QUpsertOrderDelivery = `--sql 5a6c9e03-7b1d-4d28-8f40-c3e9a2b5d7a1
insert into orders(payment_intent_id, email, photo_count, services, outcome, download_links, email_id, created_at, updated_at)
values ($1::text, $2::text, $3::int, coalesce($4::jsonb, '[]'::jsonb), $5::text, coalesce($6::jsonb, '[]'::jsonb), $7::text, now(), now())
on conflict (payment_intent_id) do update
set outcome = excluded.outcome,
    download_links = excluded.download_links,
    email_id = excluded.email_id,
    email = case when orders.email = '' then excluded.email else orders.email end,
    updated_at = now()
where orders.email = '' or lower(orders.email) = lower(excluded.email);
`

const QSelectOrder = `--sql c47d2b81-96e0-4a3f-b5c2-0e8f1d6a4b97
select payment_intent_id, email, amount_cents, currency, photo_count, services, outcome, download_links, email_id, created_at, updated_at
from orders
where payment_intent_id = $1::text;
`
